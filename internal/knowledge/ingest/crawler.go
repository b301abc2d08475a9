// Package ingest crawls the product website and loads it into the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/htmltext"
	"github.com/xiaot623/fingenie/internal/logger"
)

const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 200

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// footerPatterns are boilerplate fragments repeated on every product page.
var footerPatterns = []string{
	"Barclays Bank UK PLC and Barclays Bank PLC are each authorised",
	"Protecting Your Money",
	"Important information",
	"Privacy policy",
	"Cookies policy",
	"Cookie policy",
	"Find us",
	"Help & FAQs",
	"Copyright",
	"©",
}

// Page is one crawled page reduced to text.
type Page struct {
	URL   string
	Depth int
	Text  string
}

// CrawlerOptions tune the crawl.
type CrawlerOptions struct {
	MaxDepth   int
	MaxPages   int
	Timeout    time.Duration
	MaxRetries uint64
}

// Crawler walks a site breadth-first, staying on the seed's host.
type Crawler struct {
	client *resty.Client
	opts   CrawlerOptions
}

// NewCrawler creates a crawler. Zero options take defaults.
func NewCrawler(opts CrawlerOptions) *Crawler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html")
	return &Crawler{client: client, opts: opts}
}

// Crawl fetches seed and the pages it links to. fn is invoked for every
// page with non-empty text; returning an error stops the crawl. Pages that
// fail to download are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, seed string, fn func(Page) error) (int, error) {
	start, err := url.Parse(seed)
	if err != nil || start.Host == "" {
		return 0, fmt.Errorf("ingest: invalid seed url %q", seed)
	}
	start.Fragment = ""
	log := logger.FromContext(ctx)

	type item struct {
		url   string
		depth int
	}
	queue := []item{{url: start.String()}}
	visited := map[string]bool{start.String(): true}
	pages := 0

	for len(queue) > 0 && pages < c.opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		cur := queue[0]
		queue = queue[1:]

		body, err := c.fetch(ctx, cur.url)
		if err != nil {
			log.Warn("skipping page", "url", cur.url, "error", err)
			continue
		}
		base, _ := url.Parse(cur.url)
		doc, err := htmltext.Parse(body, base, htmltext.ChromeSkip)
		if err != nil {
			log.Warn("unparseable page", "url", cur.url, "error", err)
			continue
		}
		pages++

		text := cleanText(doc)
		if text != "" {
			if err := fn(Page{URL: cur.url, Depth: cur.depth, Text: text}); err != nil {
				return pages, err
			}
		}

		if cur.depth >= c.opts.MaxDepth {
			continue
		}
		for _, link := range doc.Links {
			u, err := url.Parse(link)
			if err != nil || u.Host != start.Host || visited[link] {
				continue
			}
			visited[link] = true
			queue = append(queue, item{url: link, depth: cur.depth + 1})
		}
	}
	log.Info("crawl finished", "seed", seed, "pages", pages)
	return pages, nil
}

func (c *Crawler) fetch(ctx context.Context, target string) ([]byte, error) {
	backoff := retry.WithMaxRetries(c.opts.MaxRetries, retry.NewExponential(200*time.Millisecond))
	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.client.R().SetContext(ctx).Get(target)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		code := resp.StatusCode()
		switch {
		case code == http.StatusTooManyRequests || code >= 500:
			return retry.RetryableError(fmt.Errorf("status %d", code))
		case code >= 400:
			return fmt.Errorf("status %d", code)
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, domain.NewExternalError(domain.KindFetch, "GET "+target, err)
	}
	return body, nil
}

func cleanText(doc *htmltext.Document) string {
	lines := strings.Split(doc.Text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if isFooter(l) {
			continue
		}
		kept = append(kept, l)
	}
	if len(doc.ImageAlts) > 0 {
		kept = append(kept, strings.Join(doc.ImageAlts, " "))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isFooter(line string) bool {
	for _, p := range footerPatterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

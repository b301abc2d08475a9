package macro

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/xiaot623/fingenie/internal/htmltext"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// HTMLSearch queries a DuckDuckGo style HTML endpoint and scrapes results
// from the "result__a" and "result__snippet" elements.
type HTMLSearch struct {
	client  *resty.Client
	baseURL string
}

// NewHTMLSearch creates a searcher against baseURL.
func NewHTMLSearch(baseURL string, timeout time.Duration) *HTMLSearch {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", browserUserAgent)
	return &HTMLSearch{client: client, baseURL: baseURL}
}

// Search implements Searcher.
func (s *HTMLSearch) Search(ctx context.Context, query string, max int) ([]Result, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(s.baseURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode())
	}
	return parseResults(resp.Body(), max)
}

func parseResults(body []byte, max int) ([]Result, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var results []Result
	done := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if done {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				if max > 0 && len(results) >= max {
					done = true
					return
				}
				results = append(results, Result{
					Title: htmltext.CollapseSpace(textOf(n)),
					URL:   unwrapRedirect(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet") && len(results) > 0:
				results[len(results)-1].Snippet = htmltext.CollapseSpace(textOf(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results, nil
}

// unwrapRedirect extracts the target of "//duckduckgo.com/l/?uddg=..." links.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
		return u.String()
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// StaticSearch returns fixed results. MOCK mode uses it so no request
// leaves the process.
type StaticSearch struct {
	Results []Result
}

// Search implements Searcher.
func (s StaticSearch) Search(_ context.Context, _ string, max int) ([]Result, error) {
	if max > 0 && len(s.Results) > max {
		return s.Results[:max], nil
	}
	return s.Results, nil
}

// MockResults is the canned outlook served in MOCK mode.
var MockResults = []Result{{
	Title:   "Monetary Policy Summary",
	Snippet: "Bank Rate is held while CPI inflation moves back towards the 2% target and GDP growth stays modest.",
}}

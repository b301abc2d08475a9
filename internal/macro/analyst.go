// Package macro gathers current macro-economic context from the web and
// condenses it with a language model.
package macro

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/htmltext"
	"github.com/xiaot623/fingenie/internal/logger"
)

const (
	// DefaultQuery is used when no query is configured.
	DefaultQuery = "UK macroeconomic outlook Bank of England base rate inflation GDP"

	DefaultMaxResults = 3
	maxPageChars      = 4000
	fetchTimeout      = 10 * time.Second
	centralBankHost   = "bankofengland.co.uk"

	summarizerPrompt = "You are a precise and efficient summarizer. Extract and present key facts and figures from the search results.\n" +
		"Focus on numerical data, dates, and concrete information. Present information in a clear, structured format."
)

// Analyst searches, reads and summarises macro-economic news.
type Analyst struct {
	Searcher    Searcher
	Client      llm.LLMClient
	Model       string
	MaxResults  int
	Temperature float64

	http *resty.Client
}

// NewAnalyst creates an analyst with the default page fetcher.
func NewAnalyst(searcher Searcher, client llm.LLMClient, model string, maxResults int) *Analyst {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Analyst{
		Searcher:   searcher,
		Client:     client,
		Model:      model,
		MaxResults: maxResults,
		http: resty.New().
			SetTimeout(fetchTimeout).
			SetHeader("User-Agent", browserUserAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
			SetHeader("Accept-Language", "en-US,en;q=0.5"),
	}
}

// Analyze returns a summary of the search results for query. Only a failed
// search is an error; fetch and summary failures degrade to fallbacks.
func (a *Analyst) Analyze(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}
	log := logger.FromContext(ctx).With("query", query)

	results, err := a.Searcher.Search(ctx, query, a.MaxResults)
	if err != nil {
		return "", domain.NewExternalError(domain.KindSearch, "search", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %s", query), nil
	}

	var sections []string
	for _, r := range results {
		if r.URL == "" {
			if r.Title != "" && r.Snippet != "" {
				sections = append(sections, fmt.Sprintf("Source: Search Result\nTitle: %s\nSummary: %s", r.Title, r.Snippet))
			}
			continue
		}
		content := a.pageContent(ctx, r)
		if content == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("Source: %s\n%s", r.URL, content))
	}
	if len(sections) == 0 {
		log.Warn("no page content fetched")
		return "Could not fetch content from search results.", nil
	}

	summary, err := a.summarize(ctx, query, strings.Join(sections, "\n\n"))
	if err != nil {
		log.Warn("summary failed, using first result", "error", err)
		return fmt.Sprintf("Summary from first result: %s", results[0].Snippet), nil
	}
	return summary, nil
}

// pageContent fetches the page behind r. Central bank pages are prefixed
// with the search result headers, and fall back to them when the fetch fails.
func (a *Analyst) pageContent(ctx context.Context, r Result) string {
	central := isCentralBank(r.URL)
	text, err := a.fetch(ctx, r.URL)
	if err != nil {
		logger.FromContext(ctx).Warn("fetch failed", "url", r.URL, "error", err)
		if central {
			return fmt.Sprintf("Title: %s\nSummary: %s", r.Title, r.Snippet)
		}
		return ""
	}
	if text == "" {
		return ""
	}
	if central {
		return fmt.Sprintf("Title: %s\nSummary: %s\n\nDetailed Content:\n%s", r.Title, r.Snippet, text)
	}
	return text
}

func (a *Analyst) fetch(ctx context.Context, target string) (string, error) {
	resp, err := a.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return "", domain.NewExternalError(domain.KindFetch, target, err)
	}
	if resp.IsError() {
		return "", domain.NewExternalError(domain.KindFetch, target, fmt.Errorf("status %d", resp.StatusCode()))
	}
	doc, err := htmltext.Parse(resp.Body(), nil, htmltext.DefaultSkip)
	if err != nil {
		return "", err
	}
	return htmltext.Truncate(htmltext.CollapseSpace(doc.Text), maxPageChars), nil
}

func (a *Analyst) summarize(ctx context.Context, query, content string) (string, error) {
	user := fmt.Sprintf(`Summarize the key information from these search results about '%s'.
Focus on:
1. Latest figures and statistics
2. Recent dates and updates
3. Official statements or policies
4. Current trends or changes

Search Results:
%s`, query, content)
	resp, err := a.Client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       a.Model,
		Temperature: llm.Float(a.Temperature),
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: summarizerPrompt},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", domain.NewExternalError(domain.KindModel, "macro summary", err)
	}
	out, err := llm.Content(resp)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", llm.ErrEmptyCompletion
	}
	return out, nil
}

func isCentralBank(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == centralBankHost || strings.HasSuffix(host, "."+centralBankHost)
}

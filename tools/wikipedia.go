package tools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultWikipediaURL is the English Wikipedia action API.
	DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

	wikipediaTopK     = 2
	wikipediaMaxChars = 3000
)

// WikipediaTool looks up encyclopedic background on medical topics.
type WikipediaTool struct {
	web     *webClient
	baseURL string
}

// NewWikipediaTool creates the Wikipedia tool. An empty baseURL uses the
// public English Wikipedia API.
func NewWikipediaTool(baseURL string, timeout time.Duration) *WikipediaTool {
	if baseURL == "" {
		baseURL = DefaultWikipediaURL
	}
	return &WikipediaTool{web: newWebClient(timeout), baseURL: baseURL}
}

func (t *WikipediaTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: NameWikipedia,
		Description: "Search Wikipedia for detailed information about diseases, medical conditions, " +
			"anatomy, medical procedures and health topics.",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: TypeString, Description: "Medical condition, disease, body part, or health topic", Required: true},
		},
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Index   int    `json:"index"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (t *WikipediaTool) Execute(ctx context.Context, args Args) (ToolResult, error) {
	query := args.String("query")

	titles, err := t.search(ctx, query)
	if err != nil {
		return ToolResult{}, err
	}
	if len(titles) == 0 {
		return SuccessResult(t.notFound(query)), nil
	}

	pages, err := t.extracts(ctx, titles)
	if err != nil {
		return ToolResult{}, err
	}
	if len(pages) == 0 {
		return SuccessResult(t.notFound(query)), nil
	}
	return SuccessResult("Wikipedia Medical Info:\n" + strings.Join(pages, "\n\n")), nil
}

func (t *WikipediaTool) Degrade(args Args, err error) string {
	return fmt.Sprintf("Unable to access Wikipedia at the moment (%s). I can still provide general medical information about %s from my training data.",
		FailureClass(err), args.String("query"))
}

func (t *WikipediaTool) notFound(query string) string {
	return fmt.Sprintf("Wikipedia information not available for '%s'. The page may not exist or there may be a connection issue.", query)
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(wikipediaTopK)},
		"format":   {"json"},
	}
	var resp wikiSearchResponse
	if err := t.web.getJSON(ctx, t.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

// extracts returns "Page: <title>\nSummary: <text>" blocks in search order.
func (t *WikipediaTool) extracts(ctx context.Context, titles []string) ([]string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"exintro":     {"1"},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
		"format":      {"json"},
	}
	var resp wikiExtractResponse
	if err := t.web.getJSON(ctx, t.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	order := make(map[string]int, len(titles))
	for i, title := range titles {
		order[title] = i
	}

	type page struct {
		rank int
		text string
	}
	var pages []page
	for _, p := range resp.Query.Pages {
		extract := strings.TrimSpace(p.Extract)
		if extract == "" {
			continue
		}
		rank, ok := order[p.Title]
		if !ok {
			rank = len(titles) + p.Index
		}
		pages = append(pages, page{
			rank: rank,
			text: truncateRunes(fmt.Sprintf("Page: %s\nSummary: %s", p.Title, extract), wikipediaMaxChars),
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].rank < pages[j].rank })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.text
	}
	return out, nil
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

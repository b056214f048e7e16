// Web search backends used by the medical search and drug lookup tools.

package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Default endpoints for the search backends.
const (
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchBackend performs a web search.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	web     *webClient
	baseURL string
}

// NewDuckDuckGo creates a DuckDuckGo backend. An empty baseURL uses the
// public HTML endpoint.
func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	return &DuckDuckGo{web: newWebClient(timeout), baseURL: baseURL}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search returns up to limit results parsed from the HTML result page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	reqURL := d.baseURL + "?" + url.Values{"q": {query}}.Encode()
	body, err := d.web.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	results, err := parseDuckDuckGo(body)
	if err != nil {
		return nil, &decodeError{err: err}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// parseDuckDuckGo extracts results from the HTML page. Each hit has an
// anchor with class result__a followed by an element with class
// result__snippet.
func parseDuckDuckGo(body []byte) ([]SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.A && hasClass(n, "result__a"):
				results = append(results, SearchResult{
					Title: cleanText(textContent(n)),
					URL:   resultURL(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet") && len(results) > 0:
				results[len(results)-1].Snippet = cleanText(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// resultURL unwraps DuckDuckGo's redirect links (/l/?uddg=<target>).
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
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

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SearXNG queries a SearXNG instance through its JSON API.
type SearXNG struct {
	web     *webClient
	baseURL string
}

// NewSearXNG creates a SearXNG backend. The baseURL is the instance root
// (e.g. "http://localhost:8080").
func NewSearXNG(baseURL string, timeout time.Duration) *SearXNG {
	return &SearXNG{web: newWebClient(timeout), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *SearXNG) Name() string { return "searxng" }

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns up to limit results.
func (s *SearXNG) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{"q": {query}, "format": {"json"}}

	var sr searxngResponse
	if err := s.web.getJSON(ctx, s.baseURL+"/search?"+params.Encode(), &sr); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, limit)
	for _, r := range sr.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

// Search backend names.
const (
	BackendDuckDuckGo = "duckduckgo"
	BackendSearXNG    = "searxng"
)

// NewSearchBackend selects a backend by name ("duckduckgo" or "searxng").
func NewSearchBackend(name, searxngURL string, timeout time.Duration) (SearchBackend, error) {
	switch strings.ToLower(name) {
	case "", BackendDuckDuckGo, "ddg":
		return NewDuckDuckGo("", timeout), nil
	case BackendSearXNG:
		if searxngURL == "" {
			return nil, fmt.Errorf("searxng backend selected but no URL configured")
		}
		return NewSearXNG(searxngURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", name)
	}
}

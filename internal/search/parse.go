package search

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// parseResults walks the results page. Each hit is an anchor with class
// result__a, optionally followed by an anchor with class result__snippet.
// Anchors without a title or URL are dropped before they count toward limit.
func parseResults(doc *html.Node, limit int) []Result {
	var results []Result
	// snippets belong to the hit directly before them, never to one that
	// precedes a dropped anchor
	attach := false
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				r := Result{
					Title: collapse(textOf(n)),
					URL:   resolveRedirect(attr(n, "href")),
				}
				if r.Title == "" || r.URL == "" {
					attach = false
					return true
				}
				if len(results) == limit {
					return false
				}
				results = append(results, r)
				attach = true
				return true
			case hasClass(n, "result__snippet"):
				if attach && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = collapse(textOf(n))
				}
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
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

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

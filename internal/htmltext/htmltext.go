// Package htmltext extracts readable text and links from HTML pages.
package htmltext

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultSkip lists elements whose content is never part of page text.
var DefaultSkip = []atom.Atom{atom.Script, atom.Style, atom.Noscript}

// ChromeSkip adds page chrome (navigation, header, footer) to DefaultSkip.
var ChromeSkip = append([]atom.Atom{atom.Nav, atom.Header, atom.Footer}, DefaultSkip...)

// Document is the text view of a parsed page.
type Document struct {
	Title string
	Text  string
	// Links holds absolute http(s) links in document order, without fragments.
	Links []string
	// ImageAlts holds non-empty alt attributes of img elements.
	ImageAlts []string
}

// Parse reads body as HTML. Elements listed in skip are dropped with their
// subtree. Relative links are resolved against base when it is non-nil.
func Parse(body []byte, base *url.URL, skip []atom.Atom) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	skipSet := make(map[atom.Atom]bool, len(skip))
	for _, a := range skip {
		skipSet[a] = true
	}

	doc := &Document{}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipSet[n.DataAtom] {
				return
			}
			switch n.DataAtom {
			case atom.Title:
				if doc.Title == "" && n.FirstChild != nil {
					doc.Title = CollapseSpace(n.FirstChild.Data)
				}
				return
			case atom.A:
				if link := resolve(base, attr(n, "href")); link != "" {
					doc.Links = append(doc.Links, link)
				}
			case atom.Img:
				if alt := CollapseSpace(attr(n, "alt")); alt != "" {
					doc.ImageAlts = append(doc.ImageAlts, alt)
				}
			}
		}
		if n.Type == html.TextNode {
			if t := CollapseSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			sb.WriteByte('\n')
		}
	}
	walk(root)
	doc.Text = collapseLines(sb.String())
	return doc, nil
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n < 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = CollapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Br, atom.Tr, atom.Section, atom.Article, atom.Ul, atom.Ol, atom.Table:
		return true
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

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

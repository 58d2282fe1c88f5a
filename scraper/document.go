package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is an immutable snapshot of a rendered page. Extraction runs on
// the snapshot, not on the live browser tab.
type Document struct {
	url  string
	doc  *goquery.Document
	text string
}

var whitespace = regexp.MustCompile(`\s+`)

// NewDocument parses rendered HTML. Script and style contents are dropped so
// they never produce price candidates.
func NewDocument(rawHTML, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript, template").Remove()

	return &Document{
		url:  pageURL,
		doc:  doc,
		text: selectionText(doc.Find("body")),
	}, nil
}

// URL returns the page address the snapshot was taken from
func (d *Document) URL() string {
	return d.url
}

// Title returns the page title
func (d *Document) Title() string {
	return collapse(d.doc.Find("title").First().Text())
}

// Text returns the whitespace-collapsed visible text of the page body
func (d *Document) Text() string {
	return d.text
}

// Select returns the collapsed text of every element matching css, in
// document order. An invalid selector yields no elements.
func (d *Document) Select(css string) []string {
	var out []string
	d.doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		out = append(out, selectionText(s))
	})
	return out
}

// Attr returns attribute values of elements matching css, in document order
func (d *Document) Attr(css, attr string) []string {
	var out []string
	d.doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			out = append(out, v)
		}
	})
	return out
}

// ElementsWithOwnText returns the collapsed full text of every element whose
// own text nodes (not descendants') match pattern, in document order.
func (d *Document) ElementsWithOwnText(pattern *regexp.Regexp) []string {
	var out []string
	d.doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		if pattern.MatchString(ownText(s.Nodes[0])) {
			out = append(out, selectionText(s))
		}
	})
	return out
}

// selectionText joins every descendant text node with a space, so adjacent
// elements such as <span>2,643</span><span>TON</span> stay separate words.
func selectionText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return collapse(b.String())
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

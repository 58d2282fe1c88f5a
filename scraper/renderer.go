package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrElementNotFound is returned when a locator matches nothing within the wait bound
	ErrElementNotFound = errors.New("element not found")
	// ErrBlocked is returned when the site served a bot wall instead of content
	ErrBlocked = errors.New("page blocked by bot protection")
)

// Locator identifies an element on a live page
type Locator struct {
	CSS       string `yaml:"css" json:"css" validate:"required"`
	TextRegex string `yaml:"text_regex,omitempty" json:"text_regex,omitempty"`
}

// ElementRef is what the renderer reports about a located element
type ElementRef struct {
	Href string
	Text string
}

// Renderer opens pages in a headless browser. Every Open call yields its own
// session; sessions are never shared between discovery requests.
type Renderer interface {
	Open(ctx context.Context, pageURL string) (Page, error)
}

// Page is one rendered browser session
type Page interface {
	Navigate(ctx context.Context, pageURL string) error
	FindFirst(ctx context.Context, loc Locator) (*ElementRef, error)
	WaitFor(ctx context.Context, loc Locator) error
	Snapshot(ctx context.Context) (*Document, error)
	Close() error
}

// StaticRenderer serves fixed HTML per URL. It replays saved pages without a
// browser.
type StaticRenderer struct {
	Pages map[string]string
}

// Open returns a page for pageURL or an error when no fixture exists
func (r *StaticRenderer) Open(ctx context.Context, pageURL string) (Page, error) {
	p := &staticPage{pages: r.Pages}
	if err := p.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	return p, nil
}

type staticPage struct {
	pages   map[string]string
	current string
	doc     *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, pageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, ok := p.pages[pageURL]
	if !ok {
		return fmt.Errorf("failed to load %s: no such page", pageURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	p.current = pageURL
	p.doc = doc
	return nil
}

func (p *staticPage) FindFirst(ctx context.Context, loc Locator) (*ElementRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var textRe *regexp.Regexp
	if loc.TextRegex != "" {
		re, err := regexp.Compile(loc.TextRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid text regex %q: %w", loc.TextRegex, err)
		}
		textRe = re
	}

	var ref *ElementRef
	p.doc.Find(loc.CSS).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := selectionText(s)
		if textRe != nil && !textRe.MatchString(text) {
			return true
		}
		href, _ := s.Attr("href")
		ref = &ElementRef{Href: resolveHref(p.current, href), Text: text}
		return false
	})
	if ref == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, loc.CSS)
	}
	return ref, nil
}

func (p *staticPage) WaitFor(ctx context.Context, loc Locator) error {
	_, err := p.FindFirst(ctx, loc)
	return err
}

func (p *staticPage) Snapshot(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewDocument(p.pages[p.current], p.current)
}

func (p *staticPage) Close() error {
	return nil
}

// resolveHref makes a link absolute against the page it was found on
func resolveHref(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ListingLabel returns the last path segment of a listing URL
// (https://fragment.com/number/8880001234 -> 8880001234)
func ListingLabel(listingURL string) string {
	u, err := url.Parse(listingURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// RendererConfig configures the headless browser
type RendererConfig struct {
	// ControlURL connects to an already running browser instead of launching one
	ControlURL string
	// Bin is the Chromium binary; empty auto-detects
	Bin         string
	Headless    bool
	Stealth     bool
	LoadTimeout time.Duration
	WaitTimeout time.Duration
	SettleDelay time.Duration
	ViewportW   int
	ViewportH   int
}

var defaultRendererConfig = RendererConfig{
	Headless:    true,
	Stealth:     true,
	LoadTimeout: 30 * time.Second,
	WaitTimeout: 15 * time.Second,
	SettleDelay: 500 * time.Millisecond,
	ViewportW:   1920,
	ViewportH:   1080,
}

// RodRenderer renders pages with a shared headless Chromium. Each Open
// creates a new tab.
type RodRenderer struct {
	cfg      RendererConfig
	browser  *rod.Browser
	detector *BotDetector
}

// NewRodRenderer launches (or connects to) the browser
func NewRodRenderer(cfg RendererConfig) (*RodRenderer, error) {
	applyRendererDefaults(&cfg)

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(cfg.Headless).
			NoSandbox(true).
			Leakless(false)

		bin := cfg.Bin
		if bin == "" {
			if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
				bin = "/usr/bin/chromium-browser"
			}
		}
		if bin != "" {
			l = l.Bin(bin)
			log.Info().Str("bin", bin).Msg("using system Chromium")
		} else {
			log.Info().Msg("using auto-detected Chromium")
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", controlURL, err)
	}
	log.Info().Str("control_url", controlURL).Msg("browser connected")

	return &RodRenderer{
		cfg:      cfg,
		browser:  browser,
		detector: NewBotDetector(),
	}, nil
}

func applyRendererDefaults(cfg *RendererConfig) {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultRendererConfig.LoadTimeout
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultRendererConfig.WaitTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.ViewportW <= 0 || cfg.ViewportH <= 0 {
		cfg.ViewportW = defaultRendererConfig.ViewportW
		cfg.ViewportH = defaultRendererConfig.ViewportH
	}
}

// Close closes the browser
func (r *RodRenderer) Close() error {
	if r.browser != nil {
		return r.browser.Close()
	}
	return nil
}

// Open creates a new tab and loads pageURL
func (r *RodRenderer) Open(ctx context.Context, pageURL string) (Page, error) {
	var page *rod.Page
	var err error
	if r.cfg.Stealth {
		page, err = stealth.Page(r.browser)
	} else {
		page, err = r.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportW,
		Height:            r.cfg.ViewportH,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to set viewport")
	}

	p := &rodPage{page: page, r: r}
	if err := p.Navigate(ctx, pageURL); err != nil {
		_ = page.Close()
		return nil, err
	}
	return p, nil
}

type rodPage struct {
	page *rod.Page
	r    *RodRenderer
}

func (p *rodPage) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.r.cfg.LoadTimeout)
	defer cancel()

	page := p.page.Context(navCtx)
	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("wait load timeout")
	}

	// listing pages hydrate after load; give scripts a moment before probing
	if p.r.cfg.SettleDelay > 0 {
		select {
		case <-time.After(p.r.cfg.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return p.checkBotWall(navCtx, pageURL)
}

func (p *rodPage) checkBotWall(ctx context.Context, pageURL string) error {
	res, err := p.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return nil
	}
	title := ""
	if info, err := p.page.Info(); err == nil {
		title = info.Title
	}

	wall := p.r.detector.Detect(res.Value.Str(), title)
	if wall.Detected {
		log.Warn().Str("url", pageURL).Str("kind", wall.Kind).Float64("score", wall.Score).Msg(wall.Reason)
		return fmt.Errorf("%w (%s) on %s", ErrBlocked, wall.Kind, pageURL)
	}
	return nil
}

func (p *rodPage) find(ctx context.Context, loc Locator) (*rod.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.r.cfg.WaitTimeout)
	defer cancel()

	page := p.page.Context(waitCtx)
	var el *rod.Element
	var err error
	if loc.TextRegex != "" {
		el, err = page.ElementR(loc.CSS, loc.TextRegex)
	} else {
		el, err = page.Element(loc.CSS)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s within %s", ErrElementNotFound, loc.CSS, p.r.cfg.WaitTimeout)
		}
		return nil, fmt.Errorf("failed to locate %s: %w", loc.CSS, err)
	}
	// detach from waitCtx so the element stays usable after cancel
	return el.Context(ctx), nil
}

func (p *rodPage) FindFirst(ctx context.Context, loc Locator) (*ElementRef, error) {
	el, err := p.find(ctx, loc)
	if err != nil {
		return nil, err
	}

	ref := &ElementRef{}
	if href, err := el.Property("href"); err == nil {
		ref.Href = href.Str()
	}
	if text, err := el.Text(); err == nil {
		ref.Text = collapse(text)
	}
	return ref, nil
}

func (p *rodPage) WaitFor(ctx context.Context, loc Locator) error {
	_, err := p.find(ctx, loc)
	return err
}

func (p *rodPage) Snapshot(ctx context.Context) (*Document, error) {
	page := p.page.Context(ctx)
	raw, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	pageURL := ""
	if info, err := page.Info(); err == nil {
		pageURL = info.URL
	}
	return NewDocument(raw, pageURL)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

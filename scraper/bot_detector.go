package scraper

import (
	"regexp"
	"strings"
)

// BotWall describes an interstitial page served instead of the listing
type BotWall struct {
	Detected bool
	Kind     string // "captcha", "http_error" or "bot_wall"
	Reason   string
	Score    float64
}

// BotDetector detects bot walls and CAPTCHAs on rendered pages
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	blockPatterns   []*regexp.Regexp
}

// NewBotDetector creates a new bot detector
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)please verify you are human`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)just a moment`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)cloudflare`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)turnstile`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)select all images`),
		},
		blockPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)403 forbidden`),
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)502 bad gateway`),
			regexp.MustCompile(`(?i)503 service unavailable`),
		},
	}
}

// Detect scores the page text and title. Long pages need several indicators
// before they count as a wall, since listing pages routinely mention words
// like "cloudflare" in footers.
func (bd *BotDetector) Detect(pageText, pageTitle string) BotWall {
	content := strings.ToLower(pageText + " " + pageTitle)

	score := 0.0
	var reasons []string
	kind := "bot_wall"

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			score += 0.3
			reasons = append(reasons, pattern.String())
		}
	}

	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			reasons = append(reasons, "CAPTCHA detected: "+pattern.String())
			kind = "captcha"
		}
	}

	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "HTTP error: "+pattern.String())
			if kind != "captcha" {
				kind = "http_error"
			}
		}
	}

	if len(content) < 1000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "very short content with bot indicators")
	}

	if score > 1.0 {
		score = 1.0
	}

	return BotWall{
		Detected: score > 0.3,
		Kind:     kind,
		Reason:   strings.Join(reasons, "; "),
		Score:    score,
	}
}

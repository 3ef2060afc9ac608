package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

// BrowserScraper renders pages in headless Chrome before extracting text, for
// sites that build their content with JavaScript.
type BrowserScraper struct {
	maxChars int
	timeout  time.Duration
	opts     []chromedp.ExecAllocatorOption
}

func NewBrowserScraper(maxChars int, timeout time.Duration) *BrowserScraper {
	if maxChars <= 0 {
		maxChars = DefaultScrapeMaxChars
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	return &BrowserScraper{maxChars: maxChars, timeout: timeout, opts: opts}
}

// Scrape starts a browser per call; callers bound concurrency.
func (s *BrowserScraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return "", err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, s.opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, cancel := context.WithTimeout(browserCtx, s.timeout)
	defer cancel()

	var page string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(u.String()),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return "", errx.Tool(fmt.Errorf("render %s: %w", u, err))
	}

	text, err := ExtractText(strings.NewReader(page))
	if err != nil {
		return "", errx.Tool(fmt.Errorf("parse %s: %w", u, err))
	}
	return Truncate(text, s.maxChars), nil
}

var _ model.Scraper = (*BrowserScraper)(nil)

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	"github.com/chative/market-research/internal/httputil"
	logx "github.com/chative/market-research/pkg/logger"
)

// ===================================
// Website scraping
// ===================================

const (
	DefaultScrapeMaxChars = 8000
	TruncationMarker      = "...[Content truncated due to length]"
	maxPageBytes          = 4 << 20
	userAgent             = "Mozilla/5.0 (compatible; market-research-bot/1.0)"
)

// skipped elements never contribute readable text
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
}

// block elements end a line of text
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Blockquote: true,
	atom.Pre: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
}

// ExtractText returns the readable text of an HTML document, one block per line.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
		}
		isBlock := n.Type == html.ElementNode && block[n.DataAtom]
		if isBlock {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if isBlock {
			flush()
		}
	}
	walk(doc)
	flush()
	return strings.Join(lines, "\n"), nil
}

// Truncate caps text at maxChars runes and appends TruncationMarker when cut.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= maxChars {
		return text
	}
	logx.Debug().Int("orig_len", len(r)).Int("max_len", maxChars).Msg("Truncating scraped content")
	return string(r[:maxChars]) + TruncationMarker
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errx.Tool(fmt.Errorf("invalid url %q: %w", raw, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errx.Tool(fmt.Errorf("unsupported url scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, errx.Tool(fmt.Errorf("url %q has no host", raw))
	}
	return u, nil
}

// HTTPScraper fetches pages over plain HTTP and strips them to text.
type HTTPScraper struct {
	client   *http.Client
	maxChars int
}

func NewHTTPScraper(client *http.Client, maxChars int, timeout time.Duration) *HTTPScraper {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if maxChars <= 0 {
		maxChars = DefaultScrapeMaxChars
	}
	return &HTTPScraper{client: client, maxChars: maxChars}
}

// Scrape returns the page text, truncated to the configured length.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errx.Tool(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return "", errx.Tool(fmt.Errorf("fetch %s: %w", u, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", errx.Tool(fmt.Errorf("fetch %s: status %d", u, resp.StatusCode))
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	var text string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", errx.Tool(fmt.Errorf("read %s: %w", u, err))
		}
		text = strings.TrimSpace(string(b))
	} else {
		text, err = ExtractText(body)
		if err != nil {
			return "", errx.Tool(fmt.Errorf("parse %s: %w", u, err))
		}
	}
	return Truncate(text, s.maxChars), nil
}

var _ model.Scraper = (*HTTPScraper)(nil)

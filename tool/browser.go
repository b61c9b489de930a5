package tool

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Browser captures a rendered page for visual analysis. Capture returns a
// base64-encoded PNG screenshot.
type Browser interface {
	Capture(ctx context.Context, pageURL string) (string, error)
}

// ChromeBrowser implements Browser with a headless Chrome instance.
type ChromeBrowser struct {
	timeout time.Duration
}

var _ Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser creates the browser tool. A zero timeout defaults to 30s;
// pages slower than that are treated as failed captures.
func NewChromeBrowser(timeout time.Duration) *ChromeBrowser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeBrowser{timeout: timeout}
}

// Capture navigates to the page and screenshots the full viewport.
func (b *ChromeBrowser) Capture(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1280, 800),
		chromedp.Navigate(pageURL),
		chromedp.FullScreenshot(&buf, 80),
	)
	if err != nil {
		return "", fmt.Errorf("failed to capture %s: %w", pageURL, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// PageSummary fetches a page without a browser and extracts its title, meta
// description, and a text excerpt. It is the text-only fallback when a
// screenshot cannot be taken.
func PageSummary(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var sb strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		fmt.Fprintf(&sb, "Description: %s\n", strings.TrimSpace(desc))
	}

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > 2000 {
		text = text[:2000]
	}
	if text != "" {
		fmt.Fprintf(&sb, "Content: %s\n", text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no readable content at %s", pageURL)
	}
	return sb.String(), nil
}

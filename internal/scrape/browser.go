package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserTimeout bounds a single page render.
const BrowserTimeout = 30 * time.Second

// BrowserFetcher renders pages in headless Chrome before returning their
// HTML. Used when the key page only embeds its keys after scripts run.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowserFetcher creates the Chrome allocator. Chrome is only started on
// the first Fetch.
func NewBrowserFetcher() *BrowserFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &BrowserFetcher{allocCtx: allocCtx, cancel: cancel}
}

// Close shuts down the allocator.
func (f *BrowserFetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Fetch implements Fetcher.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, BrowserTimeout)
	defer cancel()

	// stop the render if the caller gives up first
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}
	if html == "" {
		return "", fmt.Errorf("empty HTML content returned for %s", url)
	}
	return html, nil
}

// Package browser drives a headless Chrome instance for page acquisition.
// A single browser process is shared across fetches; each fetch runs in a
// fresh tab so page state never leaks between units of work.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Config holds browser session configuration.
type Config struct {
	NavTimeout time.Duration
	Headless   bool
	UserAgent  string
}

// PageResult is the outcome of a page fetch. URL is the final location after
// redirects. A zero-value result signals a non-fatal fetch failure.
type PageResult struct {
	Content string
	URL     string
	Links   []string
}

// Session owns a long-lived browser process. It is safe for sequential reuse;
// a crashed browser is relaunched on the next fetch.
type Session struct {
	cfg Config

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// Launch starts a browser process and waits until it is ready.
func Launch(cfg Config) (*Session, error) {
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	s := &Session{cfg: cfg}
	if err := s.launchBrowser(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) launchBrowser() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to start now, so a
	// missing or broken Chrome install fails at launch rather than on the
	// first fetch.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.allocCtx = allocCtx
	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.cancel = cancel
	return nil
}

func (s *Session) relaunchIfDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx.Err() == nil {
		return
	}
	slog.Info("browser process died, relaunching")
	s.cancel()
	s.allocCancel()
	if err := s.launchBrowser(); err != nil {
		slog.Error("browser relaunch failed", "error", err)
	}
}

func (s *Session) browser() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserCtx
}

// Close shuts the browser process down.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.allocCancel()
}

// requestHeaders mirror what a desktop Firefox sends, which keeps picky
// origins from serving bot pages.
func requestHeaders() network.Headers {
	return network.Headers{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:98.0) Gecko/20100101 Firefox/98.0",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate",
		"Connection":      "keep-alive",
	}
}

// Fetch renders a page in a fresh tab and returns its HTML, final URL and
// outbound links. Timeouts and render errors are non-fatal: both log and
// return an empty result.
func (s *Session) Fetch(ctx context.Context, pageURL string) PageResult {
	tabCtx, cancel := chromedp.NewContext(s.browser())
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	blockImages(tabCtx)

	var content, location string
	var links []string
	err := chromedp.Run(tabCtx,
		fetch.Enable(),
		network.Enable(),
		network.SetExtraHTTPHeaders(requestHeaders()),
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &content),
		chromedp.Location(&location),
		chromedp.Evaluate(`Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`, &links),
	)
	if err != nil {
		if tabCtx.Err() == context.DeadlineExceeded {
			slog.Info("page loading took too long, skipping", "url", pageURL, "timeout", s.cfg.NavTimeout)
		} else {
			slog.Info("page fetch failed, skipping", "url", pageURL, "error", err)
			s.relaunchIfDead()
		}
		return PageResult{}
	}

	return PageResult{Content: content, URL: location, Links: links}
}

// blockImages intercepts network requests in the tab and aborts image loads,
// which speeds page rendering up considerably on media-heavy sites.
func blockImages(tabCtx context.Context) {
	c := chromedp.FromContext(tabCtx)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			go func() {
				exec := cdp.WithExecutor(tabCtx, c.Target)
				if e.ResourceType == network.ResourceTypeImage {
					fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
					return
				}
				fetch.ContinueRequest(e.RequestID).Do(exec)
			}()
		}
	})
}

// downloadGrace is how long TriggersDownload waits for a download event after
// navigation settles.
const downloadGrace = 500 * time.Millisecond

// TriggersDownload reports whether navigating to url starts a file download
// instead of rendering a page. Downloads are denied, never saved.
func (s *Session) TriggersDownload(ctx context.Context, url string) bool {
	tabCtx, cancel := chromedp.NewContext(s.browser())
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	downloadStarted := make(chan struct{}, 1)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if _, ok := ev.(*browser.EventDownloadWillBegin); ok {
			select {
			case downloadStarted <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorDeny).WithEventsEnabled(true),
		chromedp.Navigate(url),
	)
	// A denied download aborts the navigation; that error is the signal we
	// are after, not a failure.
	if err != nil && !strings.Contains(err.Error(), "net::ERR_ABORTED") {
		select {
		case <-downloadStarted:
			return true
		default:
		}
		slog.Info("download probe failed", "url", url, "error", err)
		return false
	}

	select {
	case <-downloadStarted:
		return true
	case <-time.After(downloadGrace):
		return false
	}
}

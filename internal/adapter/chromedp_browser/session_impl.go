package chromedp_browser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/digest-service/internal/repository"
)

const locationPollInterval = 250 * time.Millisecond

// Config carries the browser knobs for a resolution session.
type Config struct {
	Headless            bool
	UserAgent           string
	NavigationTimeout   time.Duration
	FinalURLTimeout     time.Duration
	ConsentClickTimeout time.Duration
	// IndirectionPattern matches URLs still on the redirector host.
	IndirectionPattern *regexp.Regexp
	// ConsentHostPattern matches the consent interstitial host.
	ConsentHostPattern *regexp.Regexp
	ConsentSelectors   []string
}

// Launcher starts headless Chrome sessions via chromedp.
type Launcher struct {
	cfg Config
}

var _ repository.BrowserLauncher = (*Launcher)(nil)

func NewLauncher(cfg Config) *Launcher {
	return &Launcher{cfg: cfg}
}

// Launch starts the browser and installs request interception that drops
// image/stylesheet/font loads to keep navigations fast.
func (l *Launcher) Launch(ctx context.Context) (repository.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(l.cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:           l.cfg,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	if err := chromedp.Run(browserCtx, fetch.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.blockHeavyResources()

	return s, nil
}

// Session owns one long-lived browser page, navigated sequentially for a
// whole resolution batch. Not safe for concurrent use.
type Session struct {
	cfg           Config
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

var _ repository.BrowserSession = (*Session)(nil)

func (s *Session) blockHeavyResources() {
	chromedp.ListenTarget(s.browserCtx, func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(s.browserCtx)
			execCtx := cdp.WithExecutor(s.browserCtx, c.Target)
			switch e.ResourceType {
			case network.ResourceTypeImage, network.ResourceTypeStylesheet, network.ResourceTypeFont:
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			default:
				_ = fetch.ContinueRequest(e.RequestID).Do(execCtx)
			}
		}()
	})
}

// Navigate drives the page to rawURL and waits for the redirect chain to
// settle off the indirection host. A landing on the consent host is treated
// as settled so the caller can clear the interstitial. On timeout the last
// observed URL is returned together with repository.ErrNavigationTimeout.
func (s *Session) Navigate(ctx context.Context, rawURL string) (string, error) {
	navCtx, navCancel := context.WithTimeout(s.browserCtx, s.cfg.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(rawURL))
	navCancel()
	if s.browserCtx.Err() != nil {
		return "", fmt.Errorf("browser session lost: %w", s.browserCtx.Err())
	}
	if err != nil {
		// The initial load is routinely interrupted by the redirect chain;
		// what matters is where the page ends up.
		slog.Debug("initial navigation interrupted", "url", rawURL, "error", err)
	}

	deadline := time.Now().Add(s.cfg.FinalURLTimeout)
	var lastURL string
	for {
		var current string
		locCtx, locCancel := context.WithTimeout(s.browserCtx, time.Second)
		locErr := chromedp.Run(locCtx, chromedp.Location(&current))
		locCancel()

		if locErr == nil && current != "" {
			lastURL = current
			if s.cfg.ConsentHostPattern.MatchString(current) {
				return current, nil
			}
			if !s.cfg.IndirectionPattern.MatchString(current) {
				return current, nil
			}
		}

		if time.Now().After(deadline) {
			return lastURL, repository.ErrNavigationTimeout
		}

		select {
		case <-ctx.Done():
			return lastURL, ctx.Err()
		case <-s.browserCtx.Done():
			return lastURL, fmt.Errorf("browser session lost: %w", s.browserCtx.Err())
		case <-time.After(locationPollInterval):
		}
	}
}

// AcceptConsent tries each configured consent control in priority order and
// reports whether one of them was clicked.
func (s *Session) AcceptConsent(ctx context.Context) bool {
	for _, selector := range s.cfg.ConsentSelectors {
		clickCtx, clickCancel := context.WithTimeout(s.browserCtx, s.cfg.ConsentClickTimeout)
		err := chromedp.Run(clickCtx,
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Click(selector, chromedp.ByQuery),
		)
		clickCancel()
		if err != nil {
			slog.Debug("consent selector failed", "selector", selector, "error", err)
			continue
		}

		waitCtx, waitCancel := context.WithTimeout(s.browserCtx, s.cfg.NavigationTimeout)
		_ = chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
		waitCancel()

		slog.Info("consent accepted", "selector", selector)
		return true
	}
	slog.Error("failed to clear consent page, all selectors exhausted")
	return false
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
	})
}

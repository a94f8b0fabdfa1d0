package repository

import (
	"context"
	"errors"
)

// ErrNavigationTimeout is returned by BrowserSession.Navigate when the page
// never settled off the indirection host within the configured window. The
// last observed URL is still returned alongside it.
var ErrNavigationTimeout = errors.New("navigation timed out")

// BrowserSession is the narrow capability surface the resolver needs from a
// browser automation backend. Implementations hold one long-lived page that
// is navigated sequentially; sessions are not safe for concurrent use.
type BrowserSession interface {
	// Navigate drives the page to rawURL and waits for the redirect chain
	// to leave the indirection host. It returns the final URL, or the last
	// observed URL together with ErrNavigationTimeout.
	Navigate(ctx context.Context, rawURL string) (string, error)
	// AcceptConsent tries the configured consent controls in priority
	// order and reports whether any of them was clicked.
	AcceptConsent(ctx context.Context) bool
	// Close releases the browser. Safe to call more than once.
	Close()
}

// BrowserLauncher starts a fresh browser session for a resolution batch.
type BrowserLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

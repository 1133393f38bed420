package driven

import "context"

// BrowserLauncher opens headless browser sessions.
type BrowserLauncher interface {
	// Launch starts a session. The caller must Close it on every exit path.
	Launch(ctx context.Context) (PageSession, error)
}

// PageSession is the minimal set of page primitives the extractor drives.
// Selectors are CSS selectors. Implementations must not wait or retry on
// their own; waiting is the caller's job.
type PageSession interface {
	// Navigate loads the URL.
	Navigate(ctx context.Context, url string) error

	// Exists reports whether at least one element matches the selector.
	Exists(ctx context.Context, selector string) (bool, error)

	// SetValue clears the first matching input and types value into it.
	SetValue(ctx context.Context, selector, value string) error

	// Click activates the first matching element.
	Click(ctx context.Context, selector string) error

	// Rows returns the text of every cell of every element matching
	// rowSelector, one slice per row.
	Rows(ctx context.Context, rowSelector, cellSelector string) ([][]string, error)

	// Control reports whether the first matching element exists and is enabled.
	Control(ctx context.Context, selector string) (present, enabled bool, err error)

	// Mark tags the first element matching the selector and returns a token
	// identifying it. Returns "" when nothing matches.
	Mark(ctx context.Context, selector string) (string, error)

	// Marked reports whether the element tagged with token is still attached.
	// It turns false once the page replaces that element (staleness).
	Marked(ctx context.Context, token string) (bool, error)

	// Close releases the session and the browser behind it.
	Close() error
}

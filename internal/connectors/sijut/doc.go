// Package sijut implements the extractor for the federal revenue
// regulatory registry (SIJUT2 consulta).
//
// # Flow
//
// The extractor opens one browser session per run and drives it through
// a fixed sequence:
//
//  1. Navigate to the search page and wait for the date fields.
//  2. Fill the lookback window (today minus N days through today) and submit.
//  3. Wait for the results table.
//  4. Paginate: wait for rows, read them, then try to advance.
//
// # Termination
//
// Pagination stops, without error, when any of these hold:
//
//   - the next-page control is absent or disabled
//   - activating the control fails
//   - the previous page's first row never goes stale
//   - no result rows render within the wait budget
//
// Failing to find the search form or the results table is fatal and
// wraps domain.ErrExtraction. Nothing is retried at this layer.
//
// # Throttling
//
// Page advances go through a token bucket (golang.org/x/time/rate) so a
// long result set does not hammer the registry.
package sijut

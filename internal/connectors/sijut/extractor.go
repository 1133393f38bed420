package sijut

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor scrapes act rows from the registry through a browser session.
type Extractor struct {
	launcher driven.BrowserLauncher
	cfg      Config
	limiter  *rate.Limiter
}

// New creates an extractor.
func New(launcher driven.BrowserLauncher, cfg Config) *Extractor {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.PageRate > 0 {
		limit = rate.Limit(cfg.PageRate)
	}
	return &Extractor{
		launcher: launcher,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// pageState is a step of the pagination loop.
type pageState int

const (
	awaitRows pageState = iota
	readRows
	advance
	done
)

// Extract runs one search and returns every row of every page.
func (e *Extractor) Extract(ctx context.Context) (rows []domain.RawActRow, err error) {
	session, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", domain.ErrExtraction, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("sijut: closing browser session: %v", closeErr)
		}
	}()

	if err := e.search(ctx, session); err != nil {
		return nil, err
	}
	return e.paginate(ctx, session)
}

// search submits the date window and waits for the results table.
func (e *Extractor) search(ctx context.Context, page driven.PageSession) error {
	if err := page.Navigate(ctx, e.cfg.URL); err != nil {
		return fmt.Errorf("%w: navigate: %v", domain.ErrExtraction, err)
	}

	found, err := e.wait(ctx, present(page, SelectorStartDate))
	if err != nil {
		return fmt.Errorf("%w: waiting for search form: %v", domain.ErrExtraction, err)
	}
	if !found {
		return fmt.Errorf("%w: search form did not render within %s", domain.ErrExtraction, e.cfg.RenderTimeout)
	}

	start, end := e.cfg.Window()
	logger.Debug("sijut: searching %s to %s", start, end)
	if err := page.SetValue(ctx, SelectorStartDate, start); err != nil {
		return fmt.Errorf("%w: set start date: %v", domain.ErrExtraction, err)
	}
	if err := page.SetValue(ctx, SelectorEndDate, end); err != nil {
		return fmt.Errorf("%w: set end date: %v", domain.ErrExtraction, err)
	}
	if err := page.Click(ctx, SelectorSubmit); err != nil {
		return fmt.Errorf("%w: submit search: %v", domain.ErrExtraction, err)
	}

	found, err = e.wait(ctx, present(page, SelectorTable))
	if err != nil {
		return fmt.Errorf("%w: waiting for results: %v", domain.ErrExtraction, err)
	}
	if !found {
		return fmt.Errorf("%w: results table did not render within %s", domain.ErrExtraction, e.cfg.RenderTimeout)
	}
	return nil
}

// paginate walks the result pages until a termination condition holds.
// Only a failure to read rendered rows is fatal.
func (e *Extractor) paginate(ctx context.Context, page driven.PageSession) ([]domain.RawActRow, error) {
	var rows []domain.RawActRow
	pageNo := 0

	for state := awaitRows; state != done; {
		switch state {
		case awaitRows:
			found, err := e.wait(ctx, present(page, SelectorRows))
			if err != nil {
				return nil, fmt.Errorf("%w: waiting for rows: %v", domain.ErrExtraction, err)
			}
			if !found {
				logger.Debug("sijut: no rows rendered on page %d", pageNo+1)
				state = done
				continue
			}
			state = readRows

		case readRows:
			cells, err := page.Rows(ctx, SelectorRows, SelectorCells)
			if err != nil {
				return nil, fmt.Errorf("%w: read rows: %v", domain.ErrExtraction, err)
			}
			pageNo++
			kept := 0
			for _, c := range cells {
				if row, ok := domain.RawActRowFromCells(c); ok {
					rows = append(rows, row)
					kept++
				}
			}
			logger.Debug("sijut: page %d yielded %d rows", pageNo, kept)
			state = advance

		case advance:
			if e.advance(ctx, page, pageNo) {
				state = awaitRows
			} else {
				state = done
			}
		}
	}

	logger.Info("sijut: extracted %d rows from %d pages", len(rows), pageNo)
	return rows, nil
}

// advance tries to move to the next page. It reports false when
// pagination should end.
func (e *Extractor) advance(ctx context.Context, page driven.PageSession, pageNo int) bool {
	exists, enabled, err := page.Control(ctx, SelectorNextPage)
	if err != nil {
		logger.Debug("sijut: next control unreadable on page %d: %v", pageNo, err)
		return false
	}
	if !exists || !enabled {
		return false
	}

	token, err := page.Mark(ctx, SelectorRows)
	if err != nil || token == "" {
		return false
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}
	if err := page.Click(ctx, SelectorNextPage); err != nil {
		logger.Debug("sijut: next control vanished on page %d: %v", pageNo, err)
		return false
	}

	stale, err := e.wait(ctx, func(ctx context.Context) (bool, error) {
		attached, err := page.Marked(ctx, token)
		return !attached, err
	})
	if err != nil || !stale {
		logger.Debug("sijut: page %d never went stale; stopping", pageNo)
		return false
	}
	return true
}

func (e *Extractor) wait(ctx context.Context, cond condition) (bool, error) {
	return waitFor(ctx, e.cfg.RenderTimeout, e.cfg.PollInterval, cond)
}

func present(page driven.PageSession, selector string) condition {
	return func(ctx context.Context) (bool, error) {
		return page.Exists(ctx, selector)
	}
}

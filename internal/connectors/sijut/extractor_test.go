package sijut

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// fakePage simulates the registry layout.
type fakePage struct {
	mu sync.Mutex

	pages        [][][]string // page -> row -> cells
	current      int
	nextDisabled map[int]bool // page index whose next control is disabled
	noNext       bool
	noForm       bool
	noTable      bool
	neverStale   bool
	clickNextErr error
	rowsErr      error

	submitted bool
	values    map[string]string
	marked    int
	closed    bool
	navigated string
}

func newFakePage(pages ...[][]string) *fakePage {
	return &fakePage{
		pages:        pages,
		nextDisabled: map[int]bool{},
		values:       map[string]string{},
		marked:       -1,
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = url
	return nil
}

func (p *fakePage) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch selector {
	case SelectorStartDate, SelectorEndDate, SelectorSubmit:
		return !p.noForm, nil
	case SelectorTable:
		return p.submitted && !p.noTable, nil
	case SelectorRows:
		return p.submitted && p.current < len(p.pages) && len(p.pages[p.current]) > 0, nil
	default:
		return false, nil
	}
}

func (p *fakePage) SetValue(_ context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[selector] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch selector {
	case SelectorSubmit:
		p.submitted = true
	case SelectorNextPage:
		if p.clickNextErr != nil {
			return p.clickNextErr
		}
		if !p.neverStale {
			p.current++
		}
	}
	return nil
}

func (p *fakePage) Rows(_ context.Context, _, _ string) ([][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rowsErr != nil {
		return nil, p.rowsErr
	}
	return p.pages[p.current], nil
}

func (p *fakePage) Control(_ context.Context, _ string) (bool, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noNext {
		return false, false, nil
	}
	return true, !p.nextDisabled[p.current], nil
}

func (p *fakePage) Mark(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marked = p.current
	return fmt.Sprintf("page-%d", p.current), nil
}

func (p *fakePage) Marked(_ context.Context, token string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return token == fmt.Sprintf("page-%d", p.current), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeLauncher struct {
	page *fakePage
	err  error
}

func (l *fakeLauncher) Launch(_ context.Context) (driven.PageSession, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

var (
	_ driven.PageSession     = (*fakePage)(nil)
	_ driven.BrowserLauncher = (*fakeLauncher)(nil)
)

func row(n int) []string {
	return []string{"Portaria", fmt.Sprint(n), "RFB", "01/03/2024", fmt.Sprintf("ementa %d", n)}
}

func testConfig() Config {
	return Config{
		URL:           "http://registry.test/consulta.action",
		LookbackDays:  3,
		RenderTimeout: 60 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		Now:           func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) },
	}
}

func extract(t *testing.T, page *fakePage) ([]domain.RawActRow, error) {
	t.Helper()
	rows, err := New(&fakeLauncher{page: page}, testConfig()).Extract(context.Background())
	assert.True(t, page.closed, "session must be closed on every path")
	return rows, err
}

func TestExtract_PaginatesUntilNextDisabled(t *testing.T) {
	page := newFakePage(
		[][]string{row(1), row(2)},
		[][]string{row(3)},
		[][]string{row(4), row(5)},
	)
	page.nextDisabled[2] = true

	rows, err := extract(t, page)
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, "1", rows[0].Number)
	assert.Equal(t, "5", rows[4].Number)
	assert.Equal(t, "ementa 5", rows[4].Summary)
	assert.Equal(t, "http://registry.test/consulta.action", page.navigated)
	assert.Equal(t, "01/03/2024", page.values[SelectorStartDate])
	assert.Equal(t, "04/03/2024", page.values[SelectorEndDate])
}

func TestExtract_StopsWhenNextControlMissing(t *testing.T) {
	page := newFakePage([][]string{row(1)}, [][]string{row(2)})
	page.noNext = true

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExtract_StalenessTimeoutEndsPagination(t *testing.T) {
	page := newFakePage([][]string{row(1), row(2)}, [][]string{row(3)})
	page.neverStale = true

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the first page is kept and the loop terminates")
}

func TestExtract_ClickFailureEndsPagination(t *testing.T) {
	page := newFakePage([][]string{row(1)}, [][]string{row(2)})
	page.clickNextErr = errors.New("element is not attached to the page document")

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExtract_RunningPastLastPageStops(t *testing.T) {
	// the next control stays enabled but the page after the last has no rows
	page := newFakePage([][]string{row(1)}, [][]string{row(2)})

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExtract_EmptyResultTable(t *testing.T) {
	page := newFakePage([][]string{})

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExtract_SkipsShortRows(t *testing.T) {
	page := newFakePage([][]string{row(1), {"Nenhum resultado"}, row(2)})
	page.noNext = true

	rows, err := extract(t, page)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExtract_MissingSearchFormIsFatal(t *testing.T) {
	page := newFakePage([][]string{row(1)})
	page.noForm = true

	_, err := extract(t, page)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "search form")
}

func TestExtract_MissingResultsTableIsFatal(t *testing.T) {
	page := newFakePage([][]string{row(1)})
	page.noTable = true

	_, err := extract(t, page)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "results table")
}

func TestExtract_RowReadFailureIsFatal(t *testing.T) {
	page := newFakePage([][]string{row(1)})
	page.rowsErr = errors.New("target closed")

	_, err := extract(t, page)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_LaunchFailure(t *testing.T) {
	ex := New(&fakeLauncher{err: errors.New("chrome not found")}, testConfig())

	_, err := ex.Extract(context.Background())
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestConfig_Window(t *testing.T) {
	cfg := Config{LookbackDays: 3, Now: func() time.Time { return time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC) }}

	start, end := cfg.Window()
	assert.Equal(t, "30/12/2023", start)
	assert.Equal(t, "02/01/2024", end)
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(domain.DefaultSettings().Extractor)

	assert.Equal(t, domain.DefaultRegistryURL, cfg.URL)
	assert.Equal(t, 3, cfg.LookbackDays)
	assert.Equal(t, 20*time.Second, cfg.RenderTimeout)
}

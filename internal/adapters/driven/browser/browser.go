// Package browser drives a headless Chrome through chromedp and exposes it
// as driven.PageSession.
//
// Every primitive is a single DevTools call that returns immediately;
// waiting for the page is left to the caller. Queries run as small
// JavaScript expressions so an absent element is an answer, not a wait.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// markAttribute tags elements for staleness checks.
const markAttribute = "data-actharvest-mark"

// Ensure Launcher implements the interface.
var _ driven.BrowserLauncher = (*Launcher)(nil)

// Launcher starts one Chrome process per session.
type Launcher struct {
	// ChromePath overrides the browser executable. Empty searches the PATH.
	ChromePath string

	// Headful shows the browser window, for debugging selectors.
	Headful bool
}

// Launch starts the browser and opens a blank tab.
func (l *Launcher) Launch(ctx context.Context) (driven.PageSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.DisableGPU, chromedp.NoSandbox, chromedp.WindowSize(1280, 900))
	if l.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(l.ChromePath))
	}

	// The browser outlives the launch call; it ends on Close.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &session{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

// session is one browser tab.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ driven.PageSession = (*session)(nil)

// run executes actions on the tab, aborting when ctx ends.
func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *session) eval(ctx context.Context, expr string, out any) error {
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

// probe evaluates a read-only expression. While the page is navigating the
// document can vanish under the call; that reads as "not there".
func (s *session) probe(ctx context.Context, expr string) (bool, error) {
	var ok bool
	if err := s.eval(ctx, expr, &ok); err != nil {
		if ctx.Err() != nil || s.ctx.Err() != nil {
			return false, errors.Join(ctx.Err(), s.ctx.Err())
		}
		logger.Debug("browser: probe failed, treating as absent: %v", err)
		return false, nil
	}
	return ok, nil
}

func (s *session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *session) Exists(ctx context.Context, selector string) (bool, error) {
	return s.probe(ctx, existsJS(selector))
}

func (s *session) SetValue(ctx context.Context, selector, value string) error {
	var ok bool
	if err := s.eval(ctx, setValueJS(selector, value), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches %s", selector)
	}
	return nil
}

func (s *session) Click(ctx context.Context, selector string) error {
	var ok bool
	if err := s.eval(ctx, clickJS(selector), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches %s", selector)
	}
	return nil
}

func (s *session) Rows(ctx context.Context, rowSelector, cellSelector string) ([][]string, error) {
	var rows [][]string
	if err := s.eval(ctx, rowsJS(rowSelector, cellSelector), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *session) Control(ctx context.Context, selector string) (bool, bool, error) {
	var state []bool
	if err := s.eval(ctx, controlJS(selector), &state); err != nil {
		return false, false, err
	}
	if len(state) != 2 {
		return false, false, fmt.Errorf("unexpected control state %v", state)
	}
	return state[0], state[1], nil
}

func (s *session) Mark(ctx context.Context, selector string) (string, error) {
	token := uuid.NewString()
	var ok bool
	if err := s.eval(ctx, markJS(selector, token), &ok); err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (s *session) Marked(ctx context.Context, token string) (bool, error) {
	return s.probe(ctx, markedJS(token))
}

// Close shuts the browser down.
func (s *session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// js renders v as a JavaScript literal.
func js(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func existsJS(selector string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`, js(selector))
}

func setValueJS(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.focus();
	el.value = %s;
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})()`, js(selector), js(value))
}

func clickJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, js(selector))
}

func rowsJS(rowSelector, cellSelector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(
	row => Array.from(row.querySelectorAll(%s)).map(cell => cell.innerText.trim()))`,
		js(rowSelector), js(cellSelector))
}

func controlJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return [false, false];
	const disabled = el.disabled === true
		|| el.getAttribute("aria-disabled") === "true"
		|| el.classList.contains("disabled");
	return [true, !disabled];
})()`, js(selector))
}

func markJS(selector, token string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.setAttribute(%s, %s);
	return true;
})()`, js(selector), js(markAttribute), js(token))
}

func markedJS(token string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`,
		js(fmt.Sprintf(`[%s=%q]`, markAttribute, token)))
}

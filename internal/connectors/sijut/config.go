package sijut

import (
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Page selectors for the registry search layout.
const (
	SelectorStartDate = "#dt_inicio"
	SelectorEndDate   = "#dt_fim"
	SelectorSubmit    = "#btnSubmit"
	SelectorTable     = "#tabelaAtos"
	SelectorRows      = "#tabelaAtos tbody tr.linhaResultados"
	SelectorCells     = "td"
	SelectorNextPage  = "#btnProximaPagina2"
)

// FormDateLayout is the date format the search form expects.
const FormDateLayout = "02/01/2006"

// DefaultPollInterval is how often wait conditions are re-checked.
const DefaultPollInterval = 100 * time.Millisecond

// Config controls one extractor.
type Config struct {
	// URL is the search page.
	URL string

	// LookbackDays is the width of the search window, ending today.
	LookbackDays int

	// RenderTimeout bounds every wait for the page.
	RenderTimeout time.Duration

	// PollInterval is the re-check period of waits.
	PollInterval time.Duration

	// PageRate caps page advances per second. Zero disables throttling.
	PageRate float64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ConfigFromSettings maps extractor settings onto a Config.
func ConfigFromSettings(s domain.ExtractorSettings) Config {
	return Config{
		URL:           s.URL,
		LookbackDays:  s.LookbackDays,
		RenderTimeout: s.RenderTimeout,
		PageRate:      s.PageRate,
	}
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = domain.DefaultRegistryURL
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 20 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.LookbackDays < 0 {
		c.LookbackDays = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Window returns the inclusive search window as form-formatted dates.
func (c Config) Window() (start, end string) {
	c = c.withDefaults()
	today := c.Now()
	return today.AddDate(0, 0, -c.LookbackDays).Format(FormDateLayout), today.Format(FormDateLayout)
}

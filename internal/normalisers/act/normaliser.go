// Package act maps registry result rows onto canonical act records.
package act

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.ActNormaliser = (*Normaliser)(nil)

// PublicationDateLayout is the day/month/year format the registry renders.
const PublicationDateLayout = "02/01/2006"

// Normaliser converts raw rows. It holds no state.
type Normaliser struct{}

// New creates a normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise passes the text columns through unchanged and parses the
// publication date. A date that is not a real day/month/year calendar
// date fails with domain.ErrParse.
func (n *Normaliser) Normalise(raw domain.RawActRow) (domain.ActRecord, error) {
	date, err := ParseDate(raw.PublicationDate)
	if err != nil {
		return domain.ActRecord{}, err
	}
	return domain.ActRecord{
		ActType:         raw.ActType,
		ActNumber:       raw.Number,
		IssuingUnit:     raw.Unit,
		PublicationDate: date,
		SummaryText:     raw.Summary,
	}, nil
}

// ParseDate parses a registry date into UTC midnight.
// Surrounding whitespace from the rendered cell is ignored.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(PublicationDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: publication date %q is not dd/mm/yyyy", domain.ErrParse, s)
	}
	return t, nil
}

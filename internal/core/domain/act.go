package domain

import (
	"strings"
	"time"
)

// DateLayout is the canonical wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// ActRecord is a normalised regulatory act.
// The triple (ActNumber, PublicationDate, IssuingUnit) is its natural key.
type ActRecord struct {
	// ActType is the kind of act (portaria, instrução normativa, ...).
	ActType string

	// ActNumber is the act's number as published.
	ActNumber string

	// IssuingUnit is the organisational unit that issued the act.
	IssuingUnit string

	// PublicationDate is the calendar date, held at UTC midnight.
	PublicationDate time.Time

	// SummaryText is the act's summary.
	SummaryText string
}

// ActKey is the natural key of an act.
type ActKey struct {
	Number string
	Date   string
	Unit   string
}

// Key returns the record's natural key.
func (r ActRecord) Key() ActKey {
	return ActKey{
		Number: r.ActNumber,
		Date:   r.PublicationDate.Format(DateLayout),
		Unit:   r.IssuingUnit,
	}
}

// Validate checks that every required field is present.
// It guards hand-entered acts; harvested batches use ValidateLoadable.
func (r ActRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.ActType) == "":
		return invalid("act_type is required")
	case strings.TrimSpace(r.ActNumber) == "":
		return invalid("act_number is required")
	case strings.TrimSpace(r.IssuingUnit) == "":
		return invalid("issuing_unit is required")
	}
	return r.ValidateLoadable()
}

// ValidateLoadable checks what a harvested record needs to be stored.
// Text fields are kept as the source rendered them, blanks included.
func (r ActRecord) ValidateLoadable() error {
	if r.PublicationDate.IsZero() {
		return invalid("publication_date is required")
	}
	return nil
}

// StoredAct is a persisted act.
// A StoredAct with DeletedAt set is soft-deleted and excluded from every
// read and aggregate path.
type StoredAct struct {
	ActRecord

	// ID is the opaque unique identifier.
	ID string

	// CreatedAt is when the act was first ingested.
	CreatedAt time.Time

	// UpdatedAt is set by explicit edits; nil until the first edit.
	UpdatedAt *time.Time

	// DeletedAt is the soft-delete marker.
	DeletedAt *time.Time
}

// IsDeleted reports whether the act has been soft-deleted.
func (a StoredAct) IsDeleted() bool {
	return a.DeletedAt != nil
}

// ActUpdate is a partial update. Nil fields are left untouched.
// The set of mutable fields is fixed here; Apply handles each one.
type ActUpdate struct {
	ActType         *string
	ActNumber       *string
	IssuingUnit     *string
	PublicationDate *time.Time
	SummaryText     *string
}

// IsEmpty reports whether the update changes nothing.
func (u ActUpdate) IsEmpty() bool {
	return u.ActType == nil && u.ActNumber == nil && u.IssuingUnit == nil &&
		u.PublicationDate == nil && u.SummaryText == nil
}

// Validate rejects present text key fields that are blank. Fields the
// update leaves out are not checked.
func (u ActUpdate) Validate() error {
	switch {
	case u.ActType != nil && strings.TrimSpace(*u.ActType) == "":
		return invalid("act_type must not be blank")
	case u.ActNumber != nil && strings.TrimSpace(*u.ActNumber) == "":
		return invalid("act_number must not be blank")
	case u.IssuingUnit != nil && strings.TrimSpace(*u.IssuingUnit) == "":
		return invalid("issuing_unit must not be blank")
	}
	return nil
}

// Apply copies every present field onto r.
func (u ActUpdate) Apply(r *ActRecord) {
	if u.ActType != nil {
		r.ActType = *u.ActType
	}
	if u.ActNumber != nil {
		r.ActNumber = *u.ActNumber
	}
	if u.IssuingUnit != nil {
		r.IssuingUnit = *u.IssuingUnit
	}
	if u.PublicationDate != nil {
		r.PublicationDate = DateOf(*u.PublicationDate)
	}
	if u.SummaryText != nil {
		r.SummaryText = *u.SummaryText
	}
}

// ActFilter narrows act listings and aggregates.
// Date bounds are inclusive and compare against PublicationDate.
type ActFilter struct {
	From   *time.Time
	To     *time.Time
	Search string
}

// CountBucket is one group of an aggregate.
type CountBucket struct {
	Key   string
	Count int
}

// Dashboard aggregates live acts.
type Dashboard struct {
	Total  int
	ByUnit []CountBucket
	ByType []CountBucket
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

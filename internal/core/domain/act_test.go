package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() ActRecord {
	return ActRecord{
		ActType:         "Portaria",
		ActNumber:       "42",
		IssuingUnit:     "RFB",
		PublicationDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		SummaryText:     "Dispõe sobre prazos.",
	}
}

func TestActRecord_Key(t *testing.T) {
	key := sampleRecord().Key()

	assert.Equal(t, ActKey{Number: "42", Date: "2024-02-10", Unit: "RFB"}, key)
}

func TestActRecord_Key_IgnoresTypeAndSummary(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.ActType = "Instrução Normativa"
	b.SummaryText = "other"

	assert.Equal(t, a.Key(), b.Key())
}

func TestActRecord_Validate(t *testing.T) {
	require.NoError(t, sampleRecord().Validate())

	tests := []struct {
		name   string
		mutate func(r *ActRecord)
	}{
		{"missing type", func(r *ActRecord) { r.ActType = " " }},
		{"missing number", func(r *ActRecord) { r.ActNumber = "" }},
		{"missing unit", func(r *ActRecord) { r.IssuingUnit = "" }},
		{"missing date", func(r *ActRecord) { r.PublicationDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidInput)
		})
	}
}

func TestActRecord_ValidateLoadable(t *testing.T) {
	r := sampleRecord()
	r.ActType = ""
	r.ActNumber = " "
	r.IssuingUnit = ""
	assert.NoError(t, r.ValidateLoadable())
	assert.ErrorIs(t, r.Validate(), ErrInvalidInput)

	r.PublicationDate = time.Time{}
	assert.ErrorIs(t, r.ValidateLoadable(), ErrInvalidInput)
}

func TestActUpdate_Validate(t *testing.T) {
	blank, unit := " ", "COSIT"
	assert.NoError(t, ActUpdate{IssuingUnit: &unit}.Validate())
	assert.NoError(t, ActUpdate{SummaryText: &blank}.Validate())
	assert.ErrorIs(t, ActUpdate{IssuingUnit: &blank}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ActUpdate{ActNumber: &blank}.Validate(), ErrInvalidInput)
}

func TestActUpdate_IsEmpty(t *testing.T) {
	assert.True(t, ActUpdate{}.IsEmpty())

	summary := "x"
	assert.False(t, ActUpdate{SummaryText: &summary}.IsEmpty())
}

func TestActUpdate_Apply(t *testing.T) {
	r := sampleRecord()
	unit := "COSIT"
	date := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	ActUpdate{IssuingUnit: &unit, PublicationDate: &date}.Apply(&r)

	assert.Equal(t, "COSIT", r.IssuingUnit)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.PublicationDate)
	assert.Equal(t, "Portaria", r.ActType)
	assert.Equal(t, "42", r.ActNumber)
	assert.Equal(t, "Dispõe sobre prazos.", r.SummaryText)
}

func TestStoredAct_IsDeleted(t *testing.T) {
	act := StoredAct{ActRecord: sampleRecord(), ID: "a"}
	assert.False(t, act.IsDeleted())

	now := time.Now()
	act.DeletedAt = &now
	assert.True(t, act.IsDeleted())
}

func TestDateOf(t *testing.T) {
	in := time.Date(2024, 5, 6, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

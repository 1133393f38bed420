package act

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

func TestNormalise_Success(t *testing.T) {
	raw := domain.RawActRow{
		ActType:         "Instrução Normativa",
		Number:          "2.180",
		Unit:            "RFB",
		PublicationDate: "05/03/2024",
		Summary:         "  Altera a Instrução Normativa RFB nº 1.700.  ",
	}

	rec, err := New().Normalise(raw)
	require.NoError(t, err)

	assert.Equal(t, "Instrução Normativa", rec.ActType)
	assert.Equal(t, "2.180", rec.ActNumber)
	assert.Equal(t, "RFB", rec.IssuingUnit)
	assert.Equal(t, raw.Summary, rec.SummaryText, "text columns pass through unchanged")
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), rec.PublicationDate)
	assert.NoError(t, rec.Validate())
}

func TestNormalise_InvalidDates(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"day out of range for month", "31/02/2024"},
		{"iso layout", "2024-03-05"},
		{"month first", "03/25/2024"},
		{"empty", ""},
		{"two digit year", "05/03/24"},
		{"free text", "ontem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(domain.RawActRow{
				ActType: "Portaria", Number: "1", Unit: "RFB", PublicationDate: tt.date,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}

func TestNormalise_ErrorNamesTheDate(t *testing.T) {
	_, err := New().Normalise(domain.RawActRow{PublicationDate: "31/02/2024"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "31/02/2024")
}

func TestParseDate_TrimsCellWhitespace(t *testing.T) {
	d, err := ParseDate(" 29/02/2024\n")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)
}

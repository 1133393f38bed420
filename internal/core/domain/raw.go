package domain

// RawActRow is one result row as rendered by the registry.
// It is the extractor's output before normalisation; every field is
// free text exactly as it appeared in the results table.
type RawActRow struct {
	// ActType is the first column (e.g. "Instrução Normativa").
	ActType string

	// Number is the act number column.
	Number string

	// Unit is the issuing unit column.
	Unit string

	// PublicationDate is the day/month/year date string.
	PublicationDate string

	// Summary is the act's summary (ementa) column.
	Summary string
}

// RawActColumns is the minimum number of cells a rendered row must carry.
const RawActColumns = 5

// RawActRowFromCells builds a row from table cells.
// Returns false when the row has fewer than RawActColumns cells.
func RawActRowFromCells(cells []string) (RawActRow, bool) {
	if len(cells) < RawActColumns {
		return RawActRow{}, false
	}
	return RawActRow{
		ActType:         cells[0],
		Number:          cells[1],
		Unit:            cells[2],
		PublicationDate: cells[3],
		Summary:         cells[4],
	}, true
}

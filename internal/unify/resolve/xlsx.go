package resolve

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/employer-unify/internal/model"
)

// XLSXMapping maps spreadsheet column headers to source-record fields.
// Contractor-registry exports arrive as .xlsx with varying header wording;
// the mapping is configuration, not code.
type XLSXMapping struct {
	System           string
	SheetIndex       int
	IDHeader         string
	NameHeader       string
	StateHeader      string
	CityHeader       string
	StreetHeader     string
	ZipHeader        string
	IdentifierHeader string
}

// ReadXLSXRecords reads an XLSX export and returns its rows as normalized
// source records. The first row is treated as the header; rows without an ID
// or name are skipped.
func ReadXLSXRecords(path string, m XLSXMapping) ([]model.SourceRecord, error) {
	if m.System == "" || m.IDHeader == "" || m.NameHeader == "" {
		return nil, eris.New("xlsx: mapping needs system, id and name headers")
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	if m.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", m.SheetIndex, len(f.Sheets))
	}
	sheet := f.Sheets[m.SheetIndex]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: %s has no rows", path)
	}

	cols, err := headerIndex(sheet.Rows[0], m)
	if err != nil {
		return nil, err
	}

	var recs []model.SourceRecord
	for _, row := range sheet.Rows[1:] {
		cell := func(idx int) string {
			if idx < 0 || idx >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[idx].String())
		}

		id := cell(cols.id)
		name := cell(cols.name)
		if id == "" || name == "" {
			continue
		}

		recs = append(recs, NewSourceRecord(
			m.System, id, name,
			cell(cols.state), cell(cols.city), cell(cols.street),
			cell(cols.zip), cell(cols.identifier),
		))
	}
	return recs, nil
}

type columnIndex struct {
	id, name, state, city, street, zip, identifier int
}

// headerIndex locates each mapped header in the first row, case-insensitive.
// Required headers (id, name) missing is an error; optional headers missing
// resolve to -1 and their fields stay empty.
func headerIndex(header *xlsx.Row, m XLSXMapping) (columnIndex, error) {
	find := func(want string) int {
		if want == "" {
			return -1
		}
		for i, c := range header.Cells {
			if strings.EqualFold(strings.TrimSpace(c.String()), want) {
				return i
			}
		}
		return -1
	}

	cols := columnIndex{
		id:         find(m.IDHeader),
		name:       find(m.NameHeader),
		state:      find(m.StateHeader),
		city:       find(m.CityHeader),
		street:     find(m.StreetHeader),
		zip:        find(m.ZipHeader),
		identifier: find(m.IdentifierHeader),
	}
	if cols.id < 0 {
		return cols, eris.Errorf("xlsx: header %q not found", m.IDHeader)
	}
	if cols.name < 0 {
		return cols, eris.Errorf("xlsx: header %q not found", m.NameHeader)
	}
	return cols, nil
}

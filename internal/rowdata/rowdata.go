// Package rowdata loads statement transaction rows from JSON, CSV and XLSX
// exports and derives the field list shown to rule authors.
package rowdata

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// ErrInvalidRows is returned when a document does not hold a list of row objects.
var ErrInvalidRows = eris.New("invalid transaction rows")

// Document is the statement export envelope.
type Document struct {
	Transactions []domain.Row `json:"Transactions"`
}

// DecodeJSON reads rows from either a {"Transactions": [...]} envelope or a
// bare array. Numbers are kept as json.Number so large identifiers survive.
func DecodeJSON(r io.Reader) ([]domain.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "rowdata: read")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.Wrap(ErrInvalidRows, "empty document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		var rows []domain.Row
		if err := dec.Decode(&rows); err != nil {
			return nil, eris.Wrap(ErrInvalidRows, err.Error())
		}
		return nonNil(rows), nil
	case '{':
		var doc struct {
			Transactions *[]domain.Row `json:"Transactions"`
		}
		if err := dec.Decode(&doc); err != nil {
			return nil, eris.Wrap(ErrInvalidRows, err.Error())
		}
		if doc.Transactions == nil {
			return nil, eris.Wrap(ErrInvalidRows, `expected { "Transactions": [...] }`)
		}
		return nonNil(*doc.Transactions), nil
	default:
		return nil, eris.Wrap(ErrInvalidRows, "expected an array or a Transactions envelope")
	}
}

// EncodeJSON writes rows inside the Transactions envelope.
func EncodeJSON(w io.Writer, rows []domain.Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Transactions: nonNil(rows)}); err != nil {
		return eris.Wrap(err, "rowdata: encode")
	}
	return nil
}

// ReadCSV reads rows from a CSV export whose first record names the fields.
// Empty cells are left out of the row.
func ReadCSV(r io.Reader) ([]domain.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	return fromRecords(records)
}

// ReadXLSX reads rows from a sheet of an XLSX workbook. An empty sheet name
// selects the first sheet. The first row names the fields.
func ReadXLSX(path, sheetName string) ([]domain.Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return fromWorkbook(f, sheetName)
}

// ReadXLSXBytes is ReadXLSX over an uploaded workbook.
func ReadXLSXBytes(data []byte, sheetName string) ([]domain.Row, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	return fromWorkbook(f, sheetName)
}

func fromWorkbook(f *xlsx.File, sheetName string) ([]domain.Row, error) {
	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		records = append(records, rowToStrings(row))
	}
	return fromRecords(records)
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func fromRecords(records [][]string) ([]domain.Row, error) {
	if len(records) == 0 {
		return []domain.Row{}, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(domain.Row, len(header))
		for i, key := range header {
			if key == "" || i >= len(rec) || rec[i] == "" {
				continue
			}
			row[key] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func nonNil(rows []domain.Row) []domain.Row {
	if rows == nil {
		return []domain.Row{}
	}
	return rows
}

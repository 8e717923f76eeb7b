package rowdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/opensource-finance/tagspec/internal/domain"
)

func TestDecodeJSONEnvelope(t *testing.T) {
	doc := `{"Transactions": [
		{"_id": "t1", "Field86": "ORDP/123", "Amount": 150.50, "Attributes": {"Reference": "x"}},
		{"_id": "t2", "Field86": "REMI", "Amount": 12345678901234567890}
	]}`

	rows, err := DecodeJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, json.Number("150.50"), rows[0]["Amount"])
	assert.Equal(t, json.Number("12345678901234567890"), rows[1]["Amount"])
	s, ok := rows[0].String("Amount")
	assert.True(t, ok)
	assert.Equal(t, "150.5", s)
}

func TestDecodeJSONBareArray(t *testing.T) {
	rows, err := DecodeJSON(strings.NewReader(` [{"_id": "t1"}] `))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0]["_id"])
}

func TestDecodeJSONRejects(t *testing.T) {
	docs := map[string]string{
		"empty":            ``,
		"missing envelope": `{"Rows": []}`,
		"scalar":           `42`,
		"broken":           `[{`,
		"not objects":      `[1, 2]`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRows), "got %v", err)
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, []domain.Row{{"_id": "t1"}}))

	rows, err := DecodeJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, []domain.Row{{"_id": "t1"}}, rows)

	buf.Reset()
	require.NoError(t, EncodeJSON(&buf, nil))
	assert.Contains(t, buf.String(), `"Transactions": []`)
}

func TestReadCSV(t *testing.T) {
	data := "\ufeff_id,Field86,Amount\n" +
		"t1,ORDP/123,150\n" +
		",,\n" +
		"t2,,7\n"

	rows, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.Row{"_id": "t1", "Field86": "ORDP/123", "Amount": "150"}, rows[0])
	assert.Equal(t, domain.Row{"_id": "t2", "Amount": "7"}, rows[1])
}

func TestReadCSVEmpty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Statement": {
			{"_id", "Field86", "Side"},
			{"t1", "ORDP/123", "CR"},
			{"t2", "REMI", "DR"},
		},
	})

	rows, err := ReadXLSX(path, "Statement")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ORDP/123", rows[0]["Field86"])
	assert.Equal(t, "DR", rows[1]["Side"])

	rows, err = ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestReadXLSXBytes(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"_id", "Amount"}, {"t1", "150.5"}},
	})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := ReadXLSXBytes(data, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "150.5", rows[0]["Amount"])

	_, err = ReadXLSXBytes([]byte("not a workbook"), "")
	assert.Error(t, err)
}

func TestReadXLSXMissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.Error(t, err)
}

func TestDeriveFieldMeta(t *testing.T) {
	rows := []domain.Row{
		{
			"_id":           "t1",
			"Zeta":          "z",
			"Amount":        json.Number("1"),
			"Side":          "CR",
			"BankSwiftCode": "ARNBSARI",
			"Field86":       "x",
			"Hash":          "abc",
			"Attributes":    map[string]any{"A": "b"},
		},
		{
			"_id":      "t2",
			"Alpha":    "a",
			"MultiTag": []any{"A"},
		},
	}

	meta := DeriveFieldMeta(rows)
	assert.Equal(t, "_id", meta.IdentifierField)
	assert.Equal(t, []string{"BankSwiftCode", "Side", "Amount", "Alpha", "Field86", "Zeta"}, meta.DataFields)
	assert.Equal(t, meta.DataFields, meta.SourceFields)
}

func TestDeriveFieldMetaIdentifier(t *testing.T) {
	meta := DeriveFieldMeta([]domain.Row{{"Name": "n", "Identifier": "i", "IBAN": "SA"}})
	assert.Equal(t, "Identifier", meta.IdentifierField)
	assert.Equal(t, []string{"IBAN", "Name"}, meta.DataFields)

	meta = DeriveFieldMeta(nil)
	assert.Equal(t, "_id", meta.IdentifierField)
	assert.Empty(t, meta.DataFields)
}

func TestHumanizeFieldName(t *testing.T) {
	tests := map[string]string{
		"BankSwiftCode":       "Bank Swift Code",
		"Description1":        "Description 1",
		"IBAN":                "IBAN",
		"ValueDate":           "Value Date",
		"IBANCode":            "IBAN Code",
		"TransactionTypeCode": "Transaction Type Code",
		"2nd":                 "2 nd",
		"_id":                 "_id",
	}

	for in, want := range tests {
		assert.Equal(t, want, HumanizeFieldName(in), in)
	}
}

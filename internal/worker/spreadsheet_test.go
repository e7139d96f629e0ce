package worker

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"certengine/internal/certificate"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseSpreadsheet(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Recipient Name", "Category", "Email"},
		{"Jane Doe", "Keynote Speaker", "jane@example.com"},
		{"", "", ""},
		{"John Smith", "Presenter", ""},
	})

	rows, err := ParseSpreadsheet(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows (blank row skipped), got %d", len(rows))
	}
	if rows[0]["Recipient Name"] != "Jane Doe" || rows[0]["Category"] != "Keynote Speaker" {
		t.Errorf("unexpected first row: %v", rows[0])
	}
	if rows[1]["Email"] != "" {
		t.Errorf("short row should pad missing cells, got %q", rows[1]["Email"])
	}
}

func TestParseSpreadsheetHeaderOnly(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Recipient Name"},
	})
	rows, err := ParseSpreadsheet(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestMapRow(t *testing.T) {
	fields := certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name"},
		{ID: "f2", Kind: certificate.KindText, Label: "Category"},
		{ID: "f3", Kind: certificate.KindQR, Label: certificate.QRLabel},
	}

	row := SpreadsheetRow{
		"recipient  name": "Jane Doe",
		"CATEGORY":        "Keynote Speaker",
		"Recipient Email": "jane@example.com",
		"WhatsApp":        "+62 812 3456",
	}

	values, contact := MapRow(fields, row)

	if values["f1"] != "Jane Doe" {
		t.Errorf("name not mapped despite case/whitespace noise: %v", values)
	}
	if values["f2"] != "Keynote Speaker" {
		t.Errorf("category not mapped: %v", values)
	}
	if _, ok := values["f3"]; ok {
		t.Errorf("qr field must never take spreadsheet values")
	}
	if contact.Email != "jane@example.com" {
		t.Errorf("email alias not recognized: %q", contact.Email)
	}
	if contact.Phone != "+62 812 3456" {
		t.Errorf("whatsapp alias not recognized: %q", contact.Phone)
	}
}

func TestMapRowIgnoresUnknownColumns(t *testing.T) {
	fields := certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name"},
	}
	values, _ := MapRow(fields, SpreadsheetRow{
		"Recipient Name": "Jane",
		"Department":     "Engineering",
	})
	if len(values) != 1 {
		t.Errorf("unknown columns must be dropped, got %v", values)
	}
}

package worker

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetRow 是一行数据，键为表头原文。
type SpreadsheetRow map[string]string

// ParseSpreadsheet 读取 xlsx 的第一个工作表。
// 首行视为表头，空表头的列被忽略，数据行短于表头时按空值补齐。
func ParseSpreadsheet(r io.Reader) ([]SpreadsheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	var out []SpreadsheetRow
	for _, raw := range rows[1:] {
		row := make(SpreadsheetRow, len(headers))
		empty := true
		for i, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			value := ""
			if i < len(raw) {
				value = strings.TrimSpace(raw[i])
			}
			if value != "" {
				empty = false
			}
			row[header] = value
		}
		if empty {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// normalizeHeader 折叠大小写与空白，让表头匹配对拼写噪声不敏感。
func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

var (
	emailAliases = map[string]struct{}{
		"email":           {},
		"recipient email": {},
		"e-mail":          {},
	}
	phoneAliases = map[string]struct{}{
		"phone":           {},
		"recipient phone": {},
		"whatsapp":        {},
		"phone number":    {},
	}
)

func isEmailHeader(header string) bool {
	_, ok := emailAliases[normalizeHeader(header)]
	return ok
}

func isPhoneHeader(header string) bool {
	_, ok := phoneAliases[normalizeHeader(header)]
	return ok
}

// Package extract converts uploaded file bytes into indexable plain text.
package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Text extracts plain text from a file, dispatching on the filename
// extension. Unsupported extensions and malformed content both yield "",
// which downstream treats as "nothing to index" rather than an error.
func Text(fileName string, data []byte) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt":
		if !utf8.Valid(data) {
			return ""
		}
		return string(data)
	case ".json":
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return ""
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return ""
		}
		return string(normalized)
	case ".csv":
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return ""
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, ", "))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

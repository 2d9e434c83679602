package parsers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SkipBOM drops a leading UTF-8 byte order mark.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	bom := []byte{0xEF, 0xBB, 0xBF}
	peeked, err := br.Peek(3)
	if err != nil {
		return br
	}
	isBOM := true
	for i, b := range bom {
		if peeked[i] != b {
			isBOM = false
			break
		}
	}
	if isBOM {
		br.Discard(3)
	}
	return br
}

// getColIndex maps header names (case-insensitive) to column positions and checks the required ones are present.
func getColIndex(header []string, required []string) (map[string]int, error) {
	colIndex := make(map[string]int)
	for i, colName := range header {
		colIndex[strings.ToLower(strings.TrimSpace(colName))] = i
	}
	for _, req := range required {
		if _, ok := colIndex[req]; !ok {
			return nil, fmt.Errorf("falta la columna obligatoria: %s", req)
		}
	}
	return colIndex, nil
}

// RowError is a CSV row that was skipped, reported back to the user after an import.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("línea %d: %s", e.Line, e.Message)
}

func field(rec []string, colIndex map[string]int, key string) string {
	if idx, ok := colIndex[key]; ok && idx < len(rec) {
		return strings.TrimSpace(rec[idx])
	}
	return ""
}

package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"termomaz/model"

	"go.uber.org/zap"
)

// ClientCSVHeader is the column order used by client exports and accepted by imports.
var ClientCSVHeader = []string{"name", "phone", "email", "address"}

// ParseClientCSV reads a client CSV with at least a name column. Rows that cannot be read
// or fail validation are skipped and returned as RowErrors.
func ParseClientCSV(r io.Reader) ([]model.ClientInput, []RowError, error) {
	reader := csv.NewReader(SkipBOM(r))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("el archivo CSV está vacío")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer el encabezado del CSV: %w", err)
	}
	colIndex, err := getColIndex(header, []string{"name"})
	if err != nil {
		return nil, nil, err
	}

	var records []model.ClientInput
	var skipped []RowError
	line := 1
	for {
		line++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			zap.L().Warn("skipping unreadable client CSV row", zap.Int("line", line), zap.Error(err))
			skipped = append(skipped, RowError{Line: line, Message: err.Error()})
			continue
		}

		in := model.ClientInput{
			Name:    field(rec, colIndex, "name"),
			Phone:   field(rec, colIndex, "phone"),
			Email:   field(rec, colIndex, "email"),
			Address: field(rec, colIndex, "address"),
		}
		in.Normalize()
		if err := model.Check(in); err != nil {
			skipped = append(skipped, RowError{Line: line, Message: err.Error()})
			continue
		}
		records = append(records, in)
	}
	return records, skipped, nil
}

// WriteClientCSV writes clients in ClientCSVHeader order.
func WriteClientCSV(w io.Writer, clients []model.Client) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ClientCSVHeader); err != nil {
		return err
	}
	for _, c := range clients {
		if err := cw.Write([]string{c.Name, c.Phone, c.Email, c.Address}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"termomaz/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ProductCSVHeader = []string{"name", "category", "price", "stock", "description"}

// ParseProductCSV reads a product CSV with name and price columns. Stock is optional;
// a row without a stock value leaves the product's stock as it is.
func ParseProductCSV(r io.Reader) ([]ProductRow, []RowError, error) {
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
	colIndex, err := getColIndex(header, []string{"name", "price"})
	if err != nil {
		return nil, nil, err
	}

	var records []ProductRow
	var skipped []RowError
	line := 1
	for {
		line++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			zap.L().Warn("skipping unreadable product CSV row", zap.Int("line", line), zap.Error(err))
			skipped = append(skipped, RowError{Line: line, Message: err.Error()})
			continue
		}

		price, err := parsePrice(field(rec, colIndex, "price"))
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Message: "precio no válido: " + err.Error()})
			continue
		}
		row := ProductRow{ProductInput: model.ProductInput{
			Name:        field(rec, colIndex, "name"),
			Category:    field(rec, colIndex, "category"),
			Price:       price,
			Description: field(rec, colIndex, "description"),
		}}
		if raw := field(rec, colIndex, "stock"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				skipped = append(skipped, RowError{Line: line, Message: "stock no válido: " + raw})
				continue
			}
			row.Stock = n
			row.HasStock = true
		}
		row.Normalize()
		if err := row.ProductInput.Validate(); err != nil {
			skipped = append(skipped, RowError{Line: line, Message: err.Error()})
			continue
		}
		records = append(records, row)
	}
	return records, skipped, nil
}

// ProductRow is one parsed product line. HasStock tells an explicit 0 from a missing column.
type ProductRow struct {
	model.ProductInput
	HasStock bool
}

// parsePrice accepts one decimal separator, either "." or ",". With both present the last
// one is the decimal point and the other groups thousands: "1,234.50" and "1.234,50".
// A lone comma is a decimal point only when exactly two digits follow it ("12,50");
// any other comma-only value is ambiguous and rejected.
func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("vacío")
	}

	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalSep, groupSep := ".", ","
		if lastComma > lastDot {
			decimalSep, groupSep = ",", "."
		}
		if strings.Count(raw, decimalSep) > 1 {
			return decimal.Zero, fmt.Errorf("separador decimal repetido en %q", raw)
		}
		raw = strings.ReplaceAll(raw, groupSep, "")
		raw = strings.Replace(raw, decimalSep, ".", 1)
	case lastComma >= 0:
		if strings.Count(raw, ",") > 1 || len(raw)-lastComma-1 != 2 {
			return decimal.Zero, fmt.Errorf("formato ambiguo %q", raw)
		}
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return decimal.NewFromString(raw)
}

func WriteProductCSV(w io.Writer, products []model.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProductCSVHeader); err != nil {
		return err
	}
	for _, p := range products {
		row := []string{p.Name, p.Category, p.Price.StringFixed(2), strconv.Itoa(p.Stock), p.Description}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

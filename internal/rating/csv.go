package rating

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidCSV = errors.New("invalid ratings csv")

// LoadCSV reads ratings from a CSV with a header row naming the reviewerID,
// productID and rating columns in any order. Extra columns are ignored. A
// rating outside [min,max] rejects the whole file.
func LoadCSV(r io.Reader, min, max float64) ([]Rating, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidCSV)
		}
		return nil, err
	}

	cols := map[string]int{"reviewerid": -1, "productid": -1, "rating": -1}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	for name, idx := range cols {
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCSV, name)
		}
	}

	out := make([]Rating, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		get := func(name string) string {
			idx := cols[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		reviewer, product := get("reviewerid"), get("productid")
		if reviewer == "" || product == "" {
			return nil, fmt.Errorf("%w: line %d: empty id", ErrInvalidCSV, line)
		}
		value, err := strconv.ParseFloat(get("rating"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, line, err)
		}
		if value < min || value > max {
			return nil, fmt.Errorf("%w: line %d: rating %v outside [%v,%v]", ErrInvalidCSV, line, value, min, max)
		}
		out = append(out, Rating{ReviewerID: reviewer, ProductID: product, Value: value})
	}
	return out, nil
}

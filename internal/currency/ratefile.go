package currency

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRates reads `from,to,rate` records. A header row, blank lines and
// lines starting with '#' are skipped. Semicolons are accepted as separator
// and a decimal comma is accepted in the rate column.
func ParseRates(r io.Reader) (map[Pair]decimal.Decimal, error) {
	ur, err := utf8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding rate file: %w", err)
	}

	content, err := io.ReadAll(ur)
	if err != nil {
		return nil, fmt.Errorf("reading rate file: %w", err)
	}

	text := string(content)

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	if strings.Contains(firstRecordLine(text), ";") {
		cr.Comma = ';'
	}

	rates := make(map[Pair]decimal.Decimal)

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "from") {
			continue
		}

		from, err := Normalize(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		to, err := Normalize(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rate, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[2]), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rate %q: %w", line, rec[2], err)
		}

		if !rate.IsPositive() {
			return nil, fmt.Errorf("line %d: rate must be positive", line)
		}

		rates[Pair{From: from, To: to}] = rate
	}

	return rates, nil
}

func firstRecordLine(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}

	return ""
}

// LoadRates returns the default table, overridden by the file at path when
// path is not empty.
func LoadRates(path string) (*RateTable, error) {
	table := DefaultRates()
	if path == "" {
		return table, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rate file: %w", err)
	}
	defer f.Close()

	overrides, err := ParseRates(f)
	if err != nil {
		return nil, err
	}

	return table.Merge(overrides), nil
}

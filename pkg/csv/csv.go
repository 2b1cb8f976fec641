package csv

import (
	"bytes"
	"encoding/csv"
)

// Row is anything that can serialize itself as one CSV record.
type Row interface {
	Record() []string
}

// FilterFunc decides whether a row is included in the output.
type FilterFunc[T Row] func(T) bool

// Marshal renders a header plus all rows passing the filter. A nil filter
// keeps everything. encoding/csv handles quoting, so payees containing
// commas survive the round trip.
func Marshal[T Row](header []string, rows []T, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if filter != nil && !filter(r) {
			continue
		}
		if err := w.Write(r.Record()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

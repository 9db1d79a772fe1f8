package rows

import (
	"strconv"

	"github.com/bendsql/bendsql-go/internal/dberrors"
)

// String returns the value at index i as a string. The wire format encodes
// every scalar as a JSON string or null, so this is the common case; use
// Int64/Float64 only for columns a caller needs as native numbers.
func (it Item) String(i int) (string, error) {
	if i < 0 || i >= len(it.Values) {
		return "", dberrors.New(dberrors.Decode, "column index %d out of range (%d columns)", i, len(it.Values))
	}
	v := it.Values[i]
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", dberrors.New(dberrors.Decode, "column %d: expected string, got %T", i, v)
	}
	return s, nil
}

// Int64 parses the value at index i as an integer.
func (it Item) Int64(i int) (int64, error) {
	s, err := it.String(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dberrors.Wrap(dberrors.Decode, err, "column %d: parse int64", i)
	}
	return n, nil
}

// Float64 parses the value at index i as a float.
func (it Item) Float64(i int) (float64, error) {
	s, err := it.String(i)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, dberrors.Wrap(dberrors.Decode, err, "column %d: parse float64", i)
	}
	return f, nil
}

// IsNull reports whether the value at index i is SQL NULL.
func (it Item) IsNull(i int) bool {
	if i < 0 || i >= len(it.Values) {
		return true
	}
	return it.Values[i] == nil
}

// ColumnIndex returns the index of the named column, or -1 if not found.
func (it Item) ColumnIndex(name string) int {
	for i, f := range it.Schema {
		if f.Name == name {
			return i
		}
	}
	return -1
}

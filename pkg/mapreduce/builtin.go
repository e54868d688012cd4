package mapreduce

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
)

func init() {
	MustRegisterMapper("identity", func() Mapper { return IdentityMapper{} })
	MustRegisterMapper("wordcount", func() Mapper { return WordCountMapper{} })
	MustRegisterReducer("identity", func() Reducer { return IdentityReducer{} })
	MustRegisterReducer("sum", func() Reducer { return SumReducer{} })
	MustRegisterReader("list", func() Reader { return ListReader{} })
	MustRegisterReader("line", func() Reader { return LineReader{} })
	MustRegisterReader("file", func() Reader { return FileReader{} })
}

// IdentityMapper emits its input pair unchanged.
type IdentityMapper struct{}

// Map emits (key, value).
func (IdentityMapper) Map(key string, value any, emit Emitter) error {
	emit(key, value)
	return nil
}

// IdentityReducer returns the collected values unchanged.
type IdentityReducer struct{}

// Reduce returns values as-is.
func (IdentityReducer) Reduce(key string, values []any) (any, error) {
	return values, nil
}

// WordCountMapper splits a string value on whitespace and emits (word, 1)
// for every occurrence.
type WordCountMapper struct{}

// Map emits one (word, 1) pair per word in value.
func (WordCountMapper) Map(key string, value any, emit Emitter) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("wordcount mapper expects a string value, got %T", value)
	}
	for _, word := range strings.Fields(s) {
		emit(word, 1)
	}
	return nil
}

// SumReducer adds up numeric values. Values that crossed the wire arrive as
// float64, locally produced ones may still be ints; both are accepted.
type SumReducer struct{}

// maxExactInt is the largest magnitude at which float64 still represents
// every integer exactly. Beyond it an integral-looking total may have lost
// precision, so it stays a float64.
const maxExactInt = 1 << 53

// Reduce returns the sum of values, as an int64 when the total is a safely
// representable whole number.
func (SumReducer) Reduce(key string, values []any) (any, error) {
	total := 0.0
	for _, v := range values {
		n, err := asFloat(v)
		if err != nil {
			return nil, fmt.Errorf("sum reducer for key %q: %w", key, err)
		}
		total += n
	}
	if math.Abs(total) < maxExactInt && total == math.Trunc(total) {
		return int64(total), nil
	}
	return total, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// ListReader builds a dataset directly from the input list: one task per
// element, keyed by its position.
type ListReader struct{}

// Read returns a dataset with one entry per input element.
func (ListReader) Read(inputs []string) (Dataset, error) {
	ds := make(MapDataset, len(inputs))
	for i, in := range inputs {
		ds[fmt.Sprintf("%06d", i)] = in
	}
	return ds, nil
}

// LineReader treats every input as a file path and builds one task per line,
// keyed by "path:lineno".
type LineReader struct{}

// Read returns a dataset with one entry per line of every input file.
func (LineReader) Read(inputs []string) (Dataset, error) {
	ds := make(MapDataset)
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", path, err)
		}
		scanner := bufio.NewScanner(f)
		lineno := 0
		for scanner.Scan() {
			lineno++
			ds[fmt.Sprintf("%s:%d", path, lineno)] = scanner.Text()
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read input %s: %w", path, err)
		}
	}
	return ds, nil
}

// FileReader treats every input as a file path and builds one task per file,
// keyed by the path, with the full contents as the value.
type FileReader struct{}

// Read returns a dataset with one entry per input file.
func (FileReader) Read(inputs []string) (Dataset, error) {
	ds := make(MapDataset, len(inputs))
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input %s: %w", path, err)
		}
		ds[path] = string(data)
	}
	return ds, nil
}

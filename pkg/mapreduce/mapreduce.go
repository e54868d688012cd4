// Package mapreduce defines the pluggable map, reduce and read capabilities
// the engine drives, a registry that resolves them by configured name, and a
// set of built-in implementations.
package mapreduce

// Emitter receives one intermediate (key, value) emission from a mapper.
type Emitter func(key string, value any)

// Mapper transforms one (key, value) pair of the dataset into a sequence of
// intermediate (key, value) emissions. Implementations are created once per
// worker and reused across every task, so they must not keep per-task state.
type Mapper interface {
	Map(key string, value any, emit Emitter) error
}

// Reducer folds every value collected for one intermediate key into a single
// result value. Like Mapper, one instance serves many tasks.
type Reducer interface {
	Reduce(key string, values []any) (any, error)
}

// Reader turns the caller's raw input list into the dataset the master
// schedules over.
type Reader interface {
	Read(inputs []string) (Dataset, error)
}

// Dataset is a finite key-addressable collection. Keys returns every key in
// iteration order; Value looks one up.
type Dataset interface {
	Keys() []string
	Value(key string) (any, bool)
}

// MapDataset is the ready-made Dataset over a plain map. Key order is
// unspecified.
type MapDataset map[string]any

// Keys returns the dataset's keys.
func (d MapDataset) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// Value returns the value stored under key.
func (d MapDataset) Value(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

package mapreduce

import (
	"fmt"
	"sort"
	"sync"
)

// MapperFactory produces a fresh Mapper instance.
type MapperFactory func() Mapper

// ReducerFactory produces a fresh Reducer instance.
type ReducerFactory func() Reducer

// ReaderFactory produces a fresh Reader instance.
type ReaderFactory func() Reader

// Registry maps configured names to mapper, reducer and reader factories.
type Registry struct {
	mu       sync.RWMutex
	mappers  map[string]MapperFactory
	reducers map[string]ReducerFactory
	readers  map[string]ReaderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mappers:  make(map[string]MapperFactory),
		reducers: make(map[string]ReducerFactory),
		readers:  make(map[string]ReaderFactory),
	}
}

// RegisterMapper registers a mapper factory under name.
// Returns an error if the name is empty, the factory is nil, or the name is
// already taken.
func (r *Registry) RegisterMapper(name string, factory MapperFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil mapper factory")
	}
	if name == "" {
		return fmt.Errorf("mapper name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mappers[name]; exists {
		return fmt.Errorf("mapper '%s' is already registered", name)
	}
	r.mappers[name] = factory
	return nil
}

// RegisterReducer registers a reducer factory under name.
func (r *Registry) RegisterReducer(name string, factory ReducerFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil reducer factory")
	}
	if name == "" {
		return fmt.Errorf("reducer name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reducers[name]; exists {
		return fmt.Errorf("reducer '%s' is already registered", name)
	}
	r.reducers[name] = factory
	return nil
}

// RegisterReader registers a reader factory under name.
func (r *Registry) RegisterReader(name string, factory ReaderFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil reader factory")
	}
	if name == "" {
		return fmt.Errorf("reader name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.readers[name]; exists {
		return fmt.Errorf("reader '%s' is already registered", name)
	}
	r.readers[name] = factory
	return nil
}

// MustRegisterMapper registers a mapper factory and panics on error.
func (r *Registry) MustRegisterMapper(name string, factory MapperFactory) {
	if err := r.RegisterMapper(name, factory); err != nil {
		panic(err)
	}
}

// MustRegisterReducer registers a reducer factory and panics on error.
func (r *Registry) MustRegisterReducer(name string, factory ReducerFactory) {
	if err := r.RegisterReducer(name, factory); err != nil {
		panic(err)
	}
}

// MustRegisterReader registers a reader factory and panics on error.
func (r *Registry) MustRegisterReader(name string, factory ReaderFactory) {
	if err := r.RegisterReader(name, factory); err != nil {
		panic(err)
	}
}

// NewMapper instantiates the mapper registered under name.
func (r *Registry) NewMapper(name string) (Mapper, error) {
	r.mu.RLock()
	factory, ok := r.mappers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mapper '%s' is not registered", name)
	}
	return factory(), nil
}

// NewReducer instantiates the reducer registered under name.
func (r *Registry) NewReducer(name string) (Reducer, error) {
	r.mu.RLock()
	factory, ok := r.reducers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reducer '%s' is not registered", name)
	}
	return factory(), nil
}

// NewReader instantiates the reader registered under name.
func (r *Registry) NewReader(name string) (Reader, error) {
	r.mu.RLock()
	factory, ok := r.readers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reader '%s' is not registered", name)
	}
	return factory(), nil
}

// Mappers returns the registered mapper names, sorted.
func (r *Registry) Mappers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.mappers)
}

// Reducers returns the registered reducer names, sorted.
func (r *Registry) Reducers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.reducers)
}

// Readers returns the registered reader names, sorted.
func (r *Registry) Readers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.readers)
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global registry the engine resolves configured
// names against.
var DefaultRegistry = NewRegistry()

// RegisterMapper registers a mapper factory in the default registry.
func RegisterMapper(name string, factory MapperFactory) error {
	return DefaultRegistry.RegisterMapper(name, factory)
}

// RegisterReducer registers a reducer factory in the default registry.
func RegisterReducer(name string, factory ReducerFactory) error {
	return DefaultRegistry.RegisterReducer(name, factory)
}

// RegisterReader registers a reader factory in the default registry.
func RegisterReader(name string, factory ReaderFactory) error {
	return DefaultRegistry.RegisterReader(name, factory)
}

// MustRegisterMapper registers a mapper factory in the default registry and
// panics on error.
func MustRegisterMapper(name string, factory MapperFactory) {
	DefaultRegistry.MustRegisterMapper(name, factory)
}

// MustRegisterReducer registers a reducer factory in the default registry and
// panics on error.
func MustRegisterReducer(name string, factory ReducerFactory) {
	DefaultRegistry.MustRegisterReducer(name, factory)
}

// MustRegisterReader registers a reader factory in the default registry and
// panics on error.
func MustRegisterReader(name string, factory ReaderFactory) {
	DefaultRegistry.MustRegisterReader(name, factory)
}

// NewMapper instantiates a mapper from the default registry.
func NewMapper(name string) (Mapper, error) {
	return DefaultRegistry.NewMapper(name)
}

// NewReducer instantiates a reducer from the default registry.
func NewReducer(name string) (Reducer, error) {
	return DefaultRegistry.NewReducer(name)
}

// NewReader instantiates a reader from the default registry.
func NewReader(name string) (Reader, error) {
	return DefaultRegistry.NewReader(name)
}

package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Factory creates an unconnected adapter. A nil logger discards output.
type Factory func(logger *slog.Logger) Adapter

// ErrTypeRequired is returned by NewAdapter when Config.Type is empty.
var ErrTypeRequired = errors.New("adapter type not specified")

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a factory available under name (case-insensitive).
// Adapter packages call it from init(). It panics on an empty name, a nil
// factory or a duplicate registration.
func Register(name string, factory Factory) {
	key := strings.ToLower(name)
	if key == "" || factory == nil {
		panic("adapter: Register requires a name and a factory")
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[key]; dup {
		panic(fmt.Sprintf("adapter: %q registered twice", key))
	}
	factories[key] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// NewAdapter creates, but does not connect, the adapter for cfg.Type.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrTypeRequired
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	factoriesMu.RLock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	factoriesMu.RUnlock()

	sort.Strings(names)
	return names
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in leapquery.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

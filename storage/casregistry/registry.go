// Package casregistry lets storage backends register themselves at link time
// and be opened by name, either from command-line flags or from a config map.
package casregistry

import (
	"flag"
	"sort"
	"sync"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/storage"
)

// Setting is one backend-specific string option. Key doubles as the flag name.
type Setting struct {
	Key   string
	Usage string
}

// Backend is a storage plugin.
//
// Backends register in init():
//
//	casregistry.MustRegister(casregistry.Backend{ ... })
//
// and are enabled in a binary by importing the package.
type Backend struct {
	Name        string
	Description string
	Usage       Usage
	Settings    []Setting

	// Open constructs the store from resolved settings. Keys not set are
	// absent from the map. The returned close function may be nil.
	Open func(settings map[string]string) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
	// flag values bound by RegisterFlags, by backend then key
	flagValues = map[string]map[string]*string{}
)

func configError(rule, msg string) error {
	return bloomerr.New(bloomerr.KindConfig, rule, "casregistry: "+msg)
}

// Register adds a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return configError("BLOOM-REG-001", "backend name is required")
	}
	if b.Open == nil {
		return configError("BLOOM-REG-002", "backend "+b.Name+" missing Open")
	}
	if b.Usage == 0 {
		return configError("BLOOM-REG-003", "backend "+b.Name+" missing Usage")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return configError("BLOOM-REG-004", "backend "+b.Name+" already registered")
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags binds every setting of every backend matching usage to fs.
// Later calls rebind to the new flag set.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	bs := List(usage)
	mu.Lock()
	defer mu.Unlock()
	for _, b := range bs {
		vals := make(map[string]*string, len(b.Settings))
		for _, s := range b.Settings {
			vals[s.Key] = fs.String(s.Key, "", s.Usage)
		}
		flagValues[b.Name] = vals
	}
}

// Open opens the named backend using the flag values bound by RegisterFlags.
func Open(name string, usage Usage) (storage.CAS, func() error, error) {
	mu.RLock()
	vals := flagValues[name]
	settings := make(map[string]string, len(vals))
	for k, v := range vals {
		if v != nil && *v != "" {
			settings[k] = *v
		}
	}
	mu.RUnlock()
	return OpenWithConfig(name, usage, settings)
}

// OpenWithConfig opens the named backend with explicit settings. Unknown keys
// are rejected.
func OpenWithConfig(name string, usage Usage, settings map[string]string) (storage.CAS, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, configError("BLOOM-REG-005", "unknown backend "+name)
	}
	if !b.Usage.allows(usage) {
		return nil, nil, configError("BLOOM-REG-006", "backend "+name+" not supported in this binary")
	}
	known := make(map[string]struct{}, len(b.Settings))
	for _, s := range b.Settings {
		known[s.Key] = struct{}{}
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			return nil, nil, configError("BLOOM-REG-007", "backend "+name+" has no setting "+k)
		}
	}
	return b.Open(settings)
}

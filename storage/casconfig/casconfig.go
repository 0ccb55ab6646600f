// Package casconfig opens one or more registered storage backends from a
// declarative description.
package casconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/storage"
	"xdao.co/bloom/storage/casregistry"
)

// Write policies.
const (
	// WriteFirst writes to the first backend only; reads fall back in order.
	WriteFirst = "first"
	// WriteAll writes to every backend and requires equal CIDs (storage.ReplicatingCAS).
	WriteAll = "all"
)

// Config describes the archive stores. Backend packages must still be linked
// into the binary for their names to resolve.
//
// Example (YAML; the equivalent JSON is accepted too):
//
//	write_policy: all
//	backends:
//	  - name: localfs
//	    id: primary
//	    config:
//	      localfs-dir: /var/lib/bloom/cas
//	  - name: localfs
//	    id: mirror
//	    config:
//	      localfs-dir: /mnt/backup/cas
type Config struct {
	WritePolicy string          `yaml:"write_policy,omitempty" json:"write_policy,omitempty"`
	Backends    []BackendConfig `yaml:"backends" json:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend to open.
	Name string `yaml:"name" json:"name"`
	// ID distinguishes several instances of one backend. Defaults to Name.
	ID     string            `yaml:"id,omitempty" json:"id,omitempty"`
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func configError(rule, msg string, cause error) error {
	return bloomerr.Wrap(bloomerr.KindConfig, rule, "casconfig: "+msg, cause)
}

// LoadFile reads and validates a store description.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, configError("BLOOM-CFG-101", "empty config path", nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, bloomerr.Wrap(bloomerr.KindIO, "BLOOM-CFG-102", "casconfig: read "+path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, configError("BLOOM-CFG-103", "decode "+path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return configError("BLOOM-CFG-104", "at least one backend is required", nil)
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return configError("BLOOM-CFG-105", "backend name is required", nil)
		}
		if _, ok := seen[b.id()]; ok {
			return configError("BLOOM-CFG-106", "duplicate backend id "+b.id(), nil)
		}
		seen[b.id()] = struct{}{}
	}
	switch c.WritePolicy {
	case "", WriteFirst, WriteAll:
		return nil
	default:
		return configError("BLOOM-CFG-107", "invalid write_policy "+c.WritePolicy, nil)
	}
}

// Open opens every backend and composes them per WritePolicy. A single backend
// is returned as is.
//
// If preferred is non-empty the backend with that ID or name is moved to the
// front, which makes it the write target under WriteFirst.
func (c Config) Open(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].id() == preferred || ordered[i].Name == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, configError("BLOOM-CFG-108", "preferred backend "+preferred+" not found", nil)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedCAS, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, b := range ordered {
		cas, closeFn, err := casregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		named = append(named, storage.NamedCAS{Name: b.id(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].CAS, closeAll, nil
	}
	if c.WritePolicy == WriteAll {
		return storage.ReplicatingCAS{Backends: named}, closeAll, nil
	}
	adapters := make([]storage.CAS, 0, len(named))
	for _, n := range named {
		adapters = append(adapters, n.CAS)
	}
	return storage.MultiCAS{Adapters: adapters}, closeAll, nil
}

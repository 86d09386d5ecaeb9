// Package config loads the build-time queue-set declaration described
// in spec.md §6.4: two tables (H2F and F2H), each entry giving a
// queue's item width and the tx/rx capacities both endpoints must agree
// on. Declarations can be built directly as Go literals or loaded from
// YAML via Load.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/vf2/l2"
)

// QueueSpec is the YAML-friendly form of one queue declaration entry.
type QueueSpec struct {
	WidthBytes uint8  `yaml:"width_bytes"`
	CapacityTX uint32 `yaml:"capacity_tx"`
	CapacityRX uint32 `yaml:"capacity_rx"`
}

// Declaration is the full queue-set declaration for one endpoint: the
// H2F and F2H tables (spec.md §6.4). Both endpoints in a session must
// declare identical tables; Declaration itself cannot detect a mismatch
// against the peer's copy, only internal inconsistency of its own.
type Declaration struct {
	H2F []QueueSpec `yaml:"h2f"`
	F2H []QueueSpec `yaml:"f2h"`
}

// Load reads and validates a Declaration from a YAML file at path.
func Load(path string) (Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Declaration{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return Declaration{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := decl.Validate(); err != nil {
		return Declaration{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return decl, nil
}

// Validate checks the local preconditions spec.md §6.4 places on a
// declaration: every capacity must be positive and must fit the wire
// format's per-batch item count (a u16). Empty tables are accepted.
// Cross-endpoint agreement is, per the spec, not checkable here.
func (d Declaration) Validate() error {
	for i, s := range d.H2F {
		if err := s.validate(); err != nil {
			return fmt.Errorf("h2f[%d]: %w", i, err)
		}
	}
	for i, s := range d.F2H {
		if err := s.validate(); err != nil {
			return fmt.Errorf("f2h[%d]: %w", i, err)
		}
	}
	return nil
}

func (s QueueSpec) validate() error {
	if s.CapacityTX == 0 || s.CapacityRX == 0 {
		return fmt.Errorf("capacity must be positive (tx=%d rx=%d)", s.CapacityTX, s.CapacityRX)
	}
	if s.CapacityTX > math.MaxUint16 || s.CapacityRX > math.MaxUint16 {
		return fmt.Errorf("capacity exceeds a single batch's u16 item count (tx=%d rx=%d)", s.CapacityTX, s.CapacityRX)
	}
	return nil
}

// Specs converts a Declaration's tables into the []l2.Spec pairs
// l2.NewEngine consumes.
func (d Declaration) Specs() (h2f, f2h []l2.Spec) {
	h2f = make([]l2.Spec, len(d.H2F))
	for i, s := range d.H2F {
		h2f[i] = l2.Spec{WidthBytes: s.WidthBytes, CapacityTX: s.CapacityTX, CapacityRX: s.CapacityRX}
	}
	f2h = make([]l2.Spec, len(d.F2H))
	for i, s := range d.F2H {
		f2h[i] = l2.Spec{WidthBytes: s.WidthBytes, CapacityTX: s.CapacityTX, CapacityRX: s.CapacityRX}
	}
	return h2f, f2h
}

// Package prediction implements the per-run forecast store.
//
// Components that have foresight (the profile players) publish their forward
// window here every timestep, and the predictive hydrogen controller reads it
// back. The store is scoped to one simulation run and injected into the
// components that need it, so parallel runs never share forecasts.
package prediction

import "fmt"

// Kind identifies the quantity a forecast describes.
type Kind string

const (
	KindPVProduction        Kind = "pv_production"
	KindElectricConsumption Kind = "electric_consumption"
)

type key struct {
	kind   Kind
	weight int
}

type entry struct {
	timestep int
	values   []float64
}

// Store holds forecast arrays keyed by (kind, source weight). Entries are only
// valid for the timestep they were published in; reads for any other timestep
// fail rather than silently returning stale data.
type Store struct {
	entries map[key]entry
}

func NewStore() *Store {
	return &Store{
		entries: make(map[key]entry),
	}
}

// Publish stores the forecast window for the given timestep, replacing any
// previous entry under the same key.
func (s *Store) Publish(kind Kind, sourceWeight int, timestep int, values []float64) {
	s.entries[key{kind, sourceWeight}] = entry{
		timestep: timestep,
		values:   values,
	}
}

// Horizon returns the forecast window published for the given timestep.
func (s *Store) Horizon(kind Kind, sourceWeight int, timestep int) ([]float64, error) {
	e, ok := s.entries[key{kind, sourceWeight}]
	if !ok {
		return nil, fmt.Errorf("no forecast published for %s (weight %d)", kind, sourceWeight)
	}
	if e.timestep != timestep {
		return nil, fmt.Errorf("forecast for %s (weight %d) is stale: published at timestep %d, requested at %d", kind, sourceWeight, e.timestep, timestep)
	}
	return e.values, nil
}

// Clear drops all entries so the store can be reused for another run.
func (s *Store) Clear() {
	s.entries = make(map[key]entry)
}

package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates a mandatory input without a producer. Raised at
	// wiring time, never during a run.
	ErrNotConnected = errors.New("mandatory input is not connected")

	// ErrAlreadyConnected indicates that a second producer was wired onto an input.
	ErrAlreadyConnected = errors.New("input is already connected")

	// ErrStateConflict indicates a genuine state inconsistency detected during a
	// run, e.g. mutually exclusive devices running at once. Fatal for the run.
	ErrStateConflict = errors.New("conflicting device states")
)

// Component is the uniform contract for one device or controller in the
// simulation graph.
//
// Simulate is the single state-transition hook. It is invoked repeatedly
// within a timestep until the registry values converge; each invocation starts
// from the restored committed state. When forceConvergence is true the
// component must snap its outputs to its last internally consistent
// (processed) state without re-running any decision logic, and repeated forced
// calls must reproduce identical outputs.
//
// SaveState commits the current state (current -> previous); RestoreState
// rolls back to it. Both must duplicate, not alias.
type Component interface {
	Name() string
	Inputs() []*Input
	Outputs() []*Output
	Simulate(timestep int, values *StepValues, forceConvergence bool) error
	SaveState()
	RestoreState()
}

// Descriptor identifies a quantity that a producer component advertises, e.g.
// "battery state of charge". Consumers request connections by descriptor
// rather than by the producer's type name.
type Descriptor string

// Advertiser is implemented by components that offer default connections for
// some of their outputs.
type Advertiser interface {
	Advertised() map[Descriptor]*Output
}

// Requester is implemented by components that want some of their inputs wired
// automatically by descriptor.
type Requester interface {
	Requested() map[Descriptor]*Input
}

// AutoConnect wires every requested input to the advertised output with the
// matching descriptor. A descriptor advertised by more than one producer is a
// configuration error; a descriptor nobody advertises leaves the input
// unconnected (mandatory inputs are then caught by Engine.Connect). Inputs
// that were already wired explicitly are left alone.
func AutoConnect(components []Component) error {
	advertised := map[Descriptor]*Output{}
	for _, c := range components {
		adv, ok := c.(Advertiser)
		if !ok {
			continue
		}
		for desc, out := range adv.Advertised() {
			if _, exists := advertised[desc]; exists {
				return fmt.Errorf("descriptor %q is advertised by more than one component", desc)
			}
			advertised[desc] = out
		}
	}

	for _, c := range components {
		req, ok := c.(Requester)
		if !ok {
			continue
		}
		for desc, in := range req.Requested() {
			if in.Connected() {
				continue
			}
			out, exists := advertised[desc]
			if !exists {
				continue
			}
			if err := in.ConnectTo(out); err != nil {
				return fmt.Errorf("auto-connect %s.%s: %w", in.Component(), in.Name(), err)
			}
		}
	}
	return nil
}

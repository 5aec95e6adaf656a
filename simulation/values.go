package simulation

import (
	"fmt"
	"math"
)

// Output is a typed handle onto one slot of the per-timestep value registry.
// Only the component that declared the output holds the handle, which makes
// every slot single-writer by construction.
type Output struct {
	component string
	name      string
	slot      int
}

// NewOutput declares an output channel for the named component. The handle is
// not usable until the engine has registered it during Connect.
func NewOutput(component, name string) *Output {
	return &Output{
		component: component,
		name:      name,
		slot:      -1,
	}
}

func (o *Output) Component() string { return o.component }
func (o *Output) Name() string      { return o.name }

// Input is a typed handle for reading another component's output. An input is
// connected to at most one producer, resolved once during setup.
type Input struct {
	component string
	name      string
	mandatory bool
	source    *Output
}

// NewInput declares an input channel for the named component. Mandatory inputs
// must be connected before the simulation starts; optional inputs read as zero
// when unconnected.
func NewInput(component, name string, mandatory bool) *Input {
	return &Input{
		component: component,
		name:      name,
		mandatory: mandatory,
	}
}

func (in *Input) Component() string { return in.component }
func (in *Input) Name() string      { return in.name }
func (in *Input) Mandatory() bool   { return in.mandatory }
func (in *Input) Connected() bool   { return in.source != nil }

// ConnectTo wires the input to the given producer output.
func (in *Input) ConnectTo(out *Output) error {
	if in.source != nil {
		return fmt.Errorf("input %s.%s: %w (already wired to %s.%s)", in.component, in.name, ErrAlreadyConnected, in.source.component, in.source.name)
	}
	in.source = out
	return nil
}

// StepValues is the shared value registry for one timestep: one float per
// declared output channel across all components.
type StepValues struct {
	values []float64
}

func newStepValues(size int) *StepValues {
	return &StepValues{
		values: make([]float64, size),
	}
}

// Get returns the value most recently written to the output the input is wired
// to. Unconnected optional inputs read as zero.
func (s *StepValues) Get(in *Input) float64 {
	if in.source == nil {
		return 0
	}
	return s.values[in.source.slot]
}

// Set writes the component's output value for the current iteration pass.
func (s *StepValues) Set(out *Output, value float64) {
	if out.slot < 0 {
		panic(fmt.Sprintf("output %s.%s was never registered with the engine", out.component, out.name))
	}
	s.values[out.slot] = value
}

// At returns the value in the given registered output's slot.
func (s *StepValues) At(out *Output) float64 {
	if out.slot < 0 {
		panic(fmt.Sprintf("output %s.%s was never registered with the engine", out.component, out.name))
	}
	return s.values[out.slot]
}

func (s *StepValues) copyFrom(other *StepValues) {
	copy(s.values, other.values)
}

// closeEnough reports whether no value differs from the previous pass by more
// than the tolerance.
func (s *StepValues) closeEnough(previous *StepValues, tolerance float64) bool {
	for i := range s.values {
		if math.Abs(s.values[i]-previous.values[i]) > tolerance {
			return false
		}
	}
	return true
}

// differences lists the outputs that still changed between two passes, for
// non-convergence error messages.
func differences(current, previous *StepValues, outputs []*Output, tolerance float64) string {
	msg := ""
	for _, out := range outputs {
		delta := math.Abs(current.values[out.slot] - previous.values[out.slot])
		if delta > tolerance {
			msg += fmt.Sprintf("%s.%s changed by %g; ", out.component, out.name, delta)
		}
	}
	return msg
}

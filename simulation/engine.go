package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"hysim/telemetry"
	"hysim/timeutils"
)

const (
	// defaultTolerance is the maximum change of any output value between two
	// iteration passes for the timestep to count as converged.
	defaultTolerance = 1e-4

	// forceConvergenceAfter is the number of iteration passes after which the
	// engine gives up on natural convergence and runs one forced pass. The
	// forced pass is authoritative, so it bounds the iterations per timestep.
	forceConvergenceAfter = 10
)

// Parameters holds the run-wide simulation settings shared by all components.
type Parameters struct {
	Clock                  timeutils.SimClock
	PredictionHorizonSteps int
}

// Recorder consumes the committed channel values of every timestep. The
// repository implements it; tests substitute their own.
type Recorder interface {
	RecordStep(samples []telemetry.ChannelSample, diag telemetry.StepDiagnostics) error
}

// Engine owns the ordered component list and drives the timestep loop: within
// each timestep it re-simulates all components until the shared value registry
// converges (fixed-point iteration), then commits every component's state and
// hands the converged values to the recorder.
type Engine struct {
	params     Parameters
	runID      uuid.UUID
	components []Component
	outputs    []*Output
	recorder   Recorder
	tolerance  float64
	connected  bool
	diag       telemetry.RunDiagnostics
}

func New(params Parameters) *Engine {
	return &Engine{
		params:    params,
		runID:     uuid.New(),
		tolerance: defaultTolerance,
	}
}

func (e *Engine) RunID() uuid.UUID                      { return e.runID }
func (e *Engine) Parameters() Parameters                { return e.params }
func (e *Engine) Diagnostics() telemetry.RunDiagnostics { return e.diag }
func (e *Engine) SetRecorder(r Recorder)                { e.recorder = r }
func (e *Engine) Components() []Component               { return e.components }

// NewStepValues allocates a value registry sized for the connected outputs,
// for driving component Simulate calls directly outside Run.
func (e *Engine) NewStepValues() *StepValues {
	return newStepValues(len(e.outputs))
}

// Add appends a component to the simulation order. Order matters for
// within-timestep data flow: producers that should be seen by consumers in the
// same iteration pass must be added first.
func (e *Engine) Add(c Component) {
	e.components = append(e.components, c)
}

// Connect finalises the wiring: it registers every output slot, resolves
// descriptor-based default connections, and validates that all mandatory
// inputs have a producer. All configuration errors surface here, before any
// timestep runs.
func (e *Engine) Connect() error {
	if len(e.components) == 0 {
		return fmt.Errorf("no components were added")
	}

	if err := AutoConnect(e.components); err != nil {
		return err
	}

	e.outputs = e.outputs[:0]
	for _, c := range e.components {
		for _, out := range c.Outputs() {
			if out.slot >= 0 {
				return fmt.Errorf("output %s.%s is registered twice", out.component, out.name)
			}
			out.slot = len(e.outputs)
			e.outputs = append(e.outputs, out)
		}
	}
	if len(e.outputs) == 0 {
		return fmt.Errorf("not a single output channel was declared")
	}

	for _, c := range e.components {
		for _, in := range c.Inputs() {
			if !in.Connected() {
				if in.Mandatory() {
					return fmt.Errorf("%s.%s: %w", in.Component(), in.Name(), ErrNotConnected)
				}
				continue
			}
			if in.source.slot < 0 {
				return fmt.Errorf("input %s.%s is wired to output %s.%s which is not part of this simulation", in.Component(), in.Name(), in.source.component, in.source.name)
			}
		}
	}

	e.connected = true
	slog.Info("finished connecting all components",
		"components", len(e.components),
		"outputs", len(e.outputs),
	)
	return nil
}

// Run executes the given number of timesteps. The context is checked between
// timesteps only; a cancelled run leaves no partially committed step behind.
func (e *Engine) Run(ctx context.Context, timesteps int) error {
	if !e.connected {
		return fmt.Errorf("engine is not connected, call Connect before Run")
	}
	if timesteps <= 0 {
		return fmt.Errorf("invalid number of timesteps: %d", timesteps)
	}

	slog.Info("starting simulation", "run_id", e.runID, "timesteps", timesteps)

	for step := 0; step < timesteps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		values, iterations, forced, err := e.processOneTimestep(step)
		if err != nil {
			return fmt.Errorf("timestep %d: %w", step, err)
		}

		e.diag.TotalIterations += iterations
		if forced {
			e.diag.ForcedSteps++
		}

		if e.recorder != nil {
			err = e.recorder.RecordStep(e.collectSamples(step, values), telemetry.StepDiagnostics{
				RunID:         e.runID,
				Timestep:      step,
				SimulatedTime: e.params.Clock.TimeAt(step),
				Iterations:    iterations,
				Forced:        forced,
			})
			if err != nil {
				return fmt.Errorf("record timestep %d: %w", step, err)
			}
		}
	}

	slog.Info("simulation finished",
		"run_id", e.runID,
		"total_iterations", e.diag.TotalIterations,
		"forced_steps", e.diag.ForcedSteps,
	)
	return nil
}

// processOneTimestep drives the fixed-point iteration for one timestep.
//
// Components can be wired in a circle, so a single pass is generally not
// self-consistent: every pass restores each component to its committed state
// and re-simulates it against the latest registry values, until no value moves
// more than the tolerance. If the iteration budget runs out, one final pass
// with forceConvergence set makes every component emit the outputs of its last
// processed state; that pass is authoritative. States are committed only after
// the authoritative pass.
func (e *Engine) processOneTimestep(timestep int) (*StepValues, int, bool, error) {
	values := newStepValues(len(e.outputs))
	previous := newStepValues(len(e.outputs))

	iterations := 0
	forced := false
	for {
		for _, c := range e.components {
			c.RestoreState()
			if err := c.Simulate(timestep, values, forced); err != nil {
				return nil, iterations, forced, fmt.Errorf("component %s: %w", c.Name(), err)
			}
		}
		iterations++

		if forced {
			break
		}
		if values.closeEnough(previous, e.tolerance) {
			break
		}
		if iterations >= forceConvergenceAfter {
			forced = true
			slog.Warn("iteration budget exhausted, snapping to last consistent state",
				"timestep", timestep,
				"iterations", iterations,
				"unsettled", differences(values, previous, e.outputs, e.tolerance),
			)
		}
		previous.copyFrom(values)
	}

	for _, c := range e.components {
		c.SaveState()
	}
	return values, iterations, forced, nil
}

func (e *Engine) collectSamples(timestep int, values *StepValues) []telemetry.ChannelSample {
	samples := make([]telemetry.ChannelSample, 0, len(e.outputs))
	for _, out := range e.outputs {
		samples = append(samples, telemetry.ChannelSample{
			RunID:     e.runID,
			Timestep:  timestep,
			Component: out.component,
			Channel:   out.name,
			Value:     values.values[out.slot],
		})
	}
	return samples
}

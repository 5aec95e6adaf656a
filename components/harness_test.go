package components

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hysim/prediction"
	"hysim/simulation"
	"hysim/telemetry"
	"hysim/timeutils"
)

func hourlyParameters(horizonSteps int) simulation.Parameters {
	return simulation.Parameters{
		Clock: timeutils.SimClock{
			Start:       time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			StepSeconds: 3600,
		},
		PredictionHorizonSteps: horizonSteps,
	}
}

// seriesSource plays back one precomputed series per advertised descriptor.
// It stands in for whatever part of the graph a test does not want to model.
type seriesSource struct {
	name    string
	series  map[simulation.Descriptor][]float64
	outputs map[simulation.Descriptor]*simulation.Output
	order   []*simulation.Output
}

func newSeriesSource(name string, series map[simulation.Descriptor][]float64) *seriesSource {
	s := &seriesSource{
		name:    name,
		series:  series,
		outputs: map[simulation.Descriptor]*simulation.Output{},
	}
	for desc := range series {
		out := simulation.NewOutput(name, string(desc))
		s.outputs[desc] = out
		s.order = append(s.order, out)
	}
	return s
}

func (s *seriesSource) Name() string                  { return s.name }
func (s *seriesSource) Inputs() []*simulation.Input   { return nil }
func (s *seriesSource) Outputs() []*simulation.Output { return s.order }

func (s *seriesSource) Advertised() map[simulation.Descriptor]*simulation.Output {
	return s.outputs
}

func (s *seriesSource) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	for desc, out := range s.outputs {
		series := s.series[desc]
		idx := timestep
		if idx >= len(series) {
			idx = len(series) - 1
		}
		values.Set(out, series[idx])
	}
	return nil
}

func (s *seriesSource) SaveState()    {}
func (s *seriesSource) RestoreState() {}

// captureRecorder keeps all recorded samples keyed "component.channel".
type captureRecorder struct {
	series map[string][]float64
	diags  []telemetry.StepDiagnostics
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{series: map[string][]float64{}}
}

func (r *captureRecorder) RecordStep(samples []telemetry.ChannelSample, diag telemetry.StepDiagnostics) error {
	for _, s := range samples {
		r.series[s.Component+"."+s.Channel] = append(r.series[s.Component+"."+s.Channel], s.Value)
	}
	r.diags = append(r.diags, diag)
	return nil
}

// runGraph wires the given components in order and runs the full number of
// timesteps, returning everything the run recorded.
func runGraph(test *testing.T, params simulation.Parameters, timesteps int, comps ...simulation.Component) *captureRecorder {
	test.Helper()

	engine := simulation.New(params)
	for _, c := range comps {
		engine.Add(c)
	}
	require.NoError(test, engine.Connect())

	recorder := newCaptureRecorder()
	engine.SetRecorder(recorder)
	require.NoError(test, engine.Run(context.Background(), timesteps))
	return recorder
}

func constSeries(value float64, length int) []float64 {
	series := make([]float64, length)
	for i := range series {
		series[i] = value
	}
	return series
}

func newTestStore() *prediction.Store {
	return prediction.NewStore()
}

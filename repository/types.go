package repository

import "hysim/telemetry"

// StoredRun represents a simulation run that is persisted to the SQLite database.
type StoredRun struct {
	telemetry.RunRecord
	TotalIterations int
	ForcedSteps     int
	Finished        bool
}

// StoredChannelSample represents one channel value at one timestep as persisted to the SQLite database.
type StoredChannelSample struct {
	telemetry.ChannelSample
}

// StoredStepDiagnostics represents the convergence diagnostics of one timestep as persisted to the SQLite database.
type StoredStepDiagnostics struct {
	telemetry.StepDiagnostics
}

func newStoredRun(run telemetry.RunRecord) StoredRun {
	return StoredRun{
		RunRecord: run,
	}
}

func newStoredChannelSamples(samples []telemetry.ChannelSample) []StoredChannelSample {
	stored := make([]StoredChannelSample, len(samples))
	for i, s := range samples {
		stored[i] = StoredChannelSample{ChannelSample: s}
	}
	return stored
}

func newStoredStepDiagnostics(diag telemetry.StepDiagnostics) StoredStepDiagnostics {
	return StoredStepDiagnostics{
		StepDiagnostics: diag,
	}
}

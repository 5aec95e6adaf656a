package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// RunRecord identifies one simulation run and its time discretisation.
type RunRecord struct {
	ID                 uuid.UUID
	Scenario           string
	StartedAt          time.Time
	SimulationStart    time.Time
	SimulationEnd      time.Time
	SecondsPerTimestep float64
	Timesteps          int
}

// ChannelSample holds one committed output-channel value for one timestep of a run.
type ChannelSample struct {
	RunID     uuid.UUID
	Timestep  int
	Component string
	Channel   string
	Value     float64
}

// StepDiagnostics holds data about how a single timestep converged.
type StepDiagnostics struct {
	RunID         uuid.UUID
	Timestep      int
	SimulatedTime time.Time
	Iterations    int
	Forced        bool
}

// RunDiagnostics accumulates convergence metrics over a whole run.
type RunDiagnostics struct {
	TotalIterations int
	ForcedSteps     int
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"hysim/config"
	"hysim/prediction"
	"hysim/repository"
	"hysim/telemetry"
)

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	scenarioPath := flag.String("scenario", "scenario.yaml", "path to the scenario file")
	resultsPath := flag.String("results", "", "override the scenario's results database path")
	flag.Parse()

	scenario, err := config.Read(*scenarioPath)
	if err != nil {
		slog.Error("Failed to read scenario", "error", err)
		os.Exit(1)
	}
	if *resultsPath != "" {
		scenario.ResultsPath = *resultsPath
	}
	if scenario.ResultsPath == "" {
		scenario.ResultsPath = "results.sqlite"
	}

	store := prediction.NewStore()
	engine, err := buildEngine(scenario, store)
	if err != nil {
		slog.Error("Failed to build component graph", "error", err)
		os.Exit(1)
	}

	period := engine.Parameters().Clock.RunPeriod(scenario.Timesteps)
	slog.Info("Starting simulation", "scenario", scenario.Name,
		"timesteps", scenario.Timesteps,
		"from", period.Start, "to", period.End,
		"simulatedDuration", period.Duration())

	repo, err := repository.New(scenario.ResultsPath)
	if err != nil {
		slog.Error("Failed to open results database", "error", err)
		os.Exit(1)
	}
	err = repo.BeginRun(telemetry.RunRecord{
		ID:                 engine.RunID(),
		Scenario:           scenario.Name,
		StartedAt:          time.Now(),
		SimulationStart:    period.Start,
		SimulationEnd:      period.End,
		SecondsPerTimestep: scenario.SecondsPerTimestep,
		Timesteps:          scenario.Timesteps,
	})
	if err != nil {
		slog.Error("Failed to register run", "error", err)
		os.Exit(1)
	}
	engine.SetRecorder(repo)

	// a ctrl-c interrupt aborts the run between timesteps
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := engine.Run(ctx, scenario.Timesteps); err != nil {
		slog.Error("Simulation failed", "error", err, "run", engine.RunID())
		os.Exit(1)
	}

	diag := engine.Diagnostics()
	if err := repo.FinishRun(engine.RunID(), diag); err != nil {
		slog.Error("Failed to finalize run", "error", err)
		os.Exit(1)
	}

	slog.Info("Simulation finished",
		"run", engine.RunID(),
		"totalIterations", diag.TotalIterations,
		"forcedSteps", diag.ForcedSteps)
}

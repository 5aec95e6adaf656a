package repository

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hysim/telemetry"
)

// Repository stores simulation results to the local file system (sqlite):
// one row per run, one row per recorded channel value and per-step
// convergence diagnostics.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&StoredRun{}, &StoredChannelSample{}, &StoredStepDiagnostics{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

func (r *Repository) BeginRun(run telemetry.RunRecord) error {
	result := r.db.Create(newStoredRun(run))
	return result.Error
}

// RecordStep persists one timestep worth of channel samples together with its
// convergence diagnostics. Implements the engine's Recorder.
func (r *Repository) RecordStep(samples []telemetry.ChannelSample, diag telemetry.StepDiagnostics) error {
	if len(samples) > 0 {
		result := r.db.CreateInBatches(newStoredChannelSamples(samples), 500)
		if result.Error != nil {
			return result.Error
		}
	}
	result := r.db.Create(newStoredStepDiagnostics(diag))
	return result.Error
}

// FinishRun marks the run complete and stores the aggregated diagnostics.
func (r *Repository) FinishRun(runID uuid.UUID, diag telemetry.RunDiagnostics) error {
	result := r.db.Model(&StoredRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"total_iterations": diag.TotalIterations,
		"forced_steps":     diag.ForcedSteps,
		"finished":         true,
	})
	return result.Error
}

func (r *Repository) GetRun(runID uuid.UUID) (StoredRun, error) {
	var run StoredRun
	result := r.db.Where("id = ?", runID).First(&run)
	return run, result.Error
}

// GetChannelSamples returns the recorded series for one channel of one
// component, ordered by timestep.
func (r *Repository) GetChannelSamples(runID uuid.UUID, component, channel string) ([]StoredChannelSample, error) {
	var samples []StoredChannelSample
	result := r.db.
		Where("run_id = ? AND component = ? AND channel = ?", runID, component, channel).
		Order("timestep asc").
		Find(&samples)
	if result.Error != nil {
		return nil, result.Error
	}
	return samples, nil
}

func (r *Repository) GetStepDiagnostics(runID uuid.UUID) ([]StoredStepDiagnostics, error) {
	var diags []StoredStepDiagnostics
	result := r.db.Where("run_id = ?", runID).Order("timestep asc").Find(&diags)
	if result.Error != nil {
		return nil, result.Error
	}
	return diags, nil
}

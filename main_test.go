package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hysim/config"
	"hysim/prediction"
	"hysim/telemetry"
)

// hybridScenario assembles the complete component graph the way a scenario
// file would: profiles, battery, the hydrogen chain and both controllers.
func hybridScenario(timesteps int) config.Scenario {
	pvW := make([]float64, timesteps+12)
	houseW := make([]float64, timesteps+12)
	for i := range pvW {
		hour := i % 24
		if hour >= 8 && hour <= 16 {
			pvW[i] = 5000
		}
		houseW[i] = 600
	}

	return config.Scenario{
		Name:                   "hybrid-test",
		Start:                  time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		SecondsPerTimestep:     3600,
		Timesteps:              timesteps,
		PredictionHorizonSteps: 6,
		Components: []config.ComponentBlock{
			{Type: typeProfileSource, Name: "pv", Params: map[string]any{
				"kind": "pv_production", "sourceWeight": 1, "seriesW": pvW,
			}},
			{Type: typeProfileSource, Name: "house", Params: map[string]any{
				"kind": "electric_consumption", "sourceWeight": 1, "seriesW": houseW,
			}},
			{Type: typeBattery, Name: "battery", Params: map[string]any{
				"capacityWh": 10000.0, "maxChargePowerW": 5000.0, "maxDischargePowerW": 5000.0,
				"minSocPercent": 10.0, "maxSocPercent": 95.0, "initialSocPercent": 80.0,
				"chargeEfficiency": 0.95, "dischargeEfficiency": 0.95,
			}},
			{Type: typeElectrolyzer, Name: "electrolyzer", Params: map[string]any{
				"powerW": 2400.0, "hydrogenOutputKgPerH": 0.045,
			}},
			{Type: typeFuelCell, Name: "fuelcell", Params: map[string]any{
				"powerW": 1500.0, "standbyPowerW": 25.0,
				"efficiencyCurve": []map[string]any{
					{"x": 0.2, "y": 0.35}, {"x": 0.5, "y": 0.48}, {"x": 1.0, "y": 0.42},
				},
			}},
			{Type: typeHydrogenStorage, Name: "h2storage", Params: map[string]any{
				"capacityKg": 30.0, "maxChargeKgPerS": 0.0002, "maxDischargeKgPerS": 0.0002,
				"chargeEnergyWhPerKg": 1000.0, "dischargeEnergyWhPerKg": 200.0,
				"initialSocPercent": 50.0,
			}},
			{Type: typeHydrogenController, Name: "h2controller", Params: map[string]any{
				"sourceWeight": 1, "electrolyzerPowerW": 2400.0,
				"fuelCellSeasonBeginStep": 1000, "fuelCellSeasonEndStep": 2000,
				"fuelCellCadenceSteps": 24,
				"hydrogenSocCeilingPercent": 96.0, "hydrogenSocFloorPercent": 5.0,
				"batterySocTurnOnPercent": 30.0, "batterySocStayOnPercent": 50.0,
				"surplusRatioThresholdPercent": 100.0, "horizonEnergyThresholdPercent": 50.0,
				"minRuntimeSeconds": 10800.0, "minStandbySeconds": 7200.0,
			}},
			{Type: typeEnergyFlowController, Name: "energyflow", Params: map[string]any{
				"fuelCellSeasonBeginStep": 1000, "fuelCellSeasonEndStep": 2000,
			}},
		},
	}
}

type memoryRecorder struct {
	series map[string][]float64
	diags  []telemetry.StepDiagnostics
}

func (r *memoryRecorder) RecordStep(samples []telemetry.ChannelSample, diag telemetry.StepDiagnostics) error {
	for _, s := range samples {
		r.series[s.Component+"."+s.Channel] = append(r.series[s.Component+"."+s.Channel], s.Value)
	}
	r.diags = append(r.diags, diag)
	return nil
}

func TestHybridScenarioRunsEndToEnd(test *testing.T) {
	scenario := hybridScenario(24)
	require.NoError(test, scenario.Validate())

	engine, err := buildEngine(scenario, prediction.NewStore())
	require.NoError(test, err)

	recorder := &memoryRecorder{series: map[string][]float64{}}
	engine.SetRecorder(recorder)
	require.NoError(test, engine.Run(context.Background(), scenario.Timesteps))

	require.Len(test, recorder.diags, 24)

	// The midday surplus has to start the electrolyzer at least once, which
	// shows up as hydrogen flowing into the storage.
	electrolyzer := recorder.series["electrolyzer.ElectricityConsumption"]
	ranAt := -1
	for step, consumption := range electrolyzer {
		if consumption > 0 {
			ranAt = step
			break
		}
	}
	require.GreaterOrEqual(test, ranAt, 0, "electrolyzer never started despite a large PV surplus")

	socSeries := recorder.series["h2storage.HydrogenSOC"]
	assert.Greater(test, socSeries[len(socSeries)-1], socSeries[0], "hydrogen storage did not fill up")

	// Electrolyzer and fuel cell must never run at once.
	fuelCell := recorder.series["fuelcell.ElectricityDelivery"]
	for step := range electrolyzer {
		assert.False(test, electrolyzer[step] > 0 && fuelCell[step] > 0,
			"both hydrogen devices active at timestep %d", step)
	}

	// The balance around the grid closes in every naturally converged
	// timestep. Forced timesteps snap each component to its own last
	// consistent state, so cross-component sums are not exact there.
	for step := 0; step < scenario.Timesteps; step++ {
		if recorder.diags[step].Forced {
			continue
		}
		pv := recorder.series["pv.Power"][step]
		house := recorder.series["house.Power"][step]
		loads := recorder.series["electrolyzer.ElectricityConsumption"][step] +
			recorder.series["h2storage.ElectricityConsumption"][step]
		battery := recorder.series["battery.AcPower"][step]
		grid := recorder.series["energyflow.ElectricityToOrFromGrid"][step]
		assert.InDelta(test, pv-house-loads, battery+grid, 1e-6,
			"grid balance violated at timestep %d", step)
	}
}

func TestBuildComponentRejectsUnknownType(test *testing.T) {
	scenario := hybridScenario(4)
	scenario.Components[0].Type = "wind_turbine"

	_, err := buildEngine(scenario, prediction.NewStore())
	require.Error(test, err)
	assert.Contains(test, err.Error(), "unknown type")
}

func TestBuildComponentRejectsUnknownParams(test *testing.T) {
	scenario := hybridScenario(4)
	scenario.Components[2].Params["capactyWh"] = 1.0

	_, err := buildEngine(scenario, prediction.NewStore())
	assert.Error(test, err)
}

package components

import (
	"fmt"
	"log/slog"

	"hysim/simulation"
)

// HydrogenStorageConfig sizes the pressure vessel. The charge and discharge
// energies cover compression respectively expansion overhead per kg moved.
type HydrogenStorageConfig struct {
	Name                   string  `mapstructure:"name"`
	CapacityKg             float64 `mapstructure:"capacityKg"`
	MaxChargeKgPerS        float64 `mapstructure:"maxChargeKgPerS"`
	MaxDischargeKgPerS     float64 `mapstructure:"maxDischargeKgPerS"`
	ChargeEnergyWhPerKg    float64 `mapstructure:"chargeEnergyWhPerKg"`
	DischargeEnergyWhPerKg float64 `mapstructure:"dischargeEnergyWhPerKg"`
	InitialSOCPercent      float64 `mapstructure:"initialSocPercent"`
}

func (c HydrogenStorageConfig) validate() error {
	if c.CapacityKg <= 0 {
		return fmt.Errorf("hydrogen storage %q: capacity must be positive", c.Name)
	}
	if c.MaxChargeKgPerS <= 0 || c.MaxDischargeKgPerS <= 0 {
		return fmt.Errorf("hydrogen storage %q: flow limits must be positive", c.Name)
	}
	if c.InitialSOCPercent < 0 || c.InitialSOCPercent > 100 {
		return fmt.Errorf("hydrogen storage %q: initial SOC %v outside [0, 100]", c.Name, c.InitialSOCPercent)
	}
	return nil
}

type hydrogenStorageState struct {
	FillKg    float64
	OverheadW float64
}

// HydrogenStorage integrates hydrogen inflow and demand over the timestep,
// clamping both to the flow limits and to what the vessel can hold or
// deliver. Compression overhead shows up as electricity consumption.
type HydrogenStorage struct {
	config HydrogenStorageConfig
	params simulation.Parameters
	state  simulation.Versioned[hydrogenStorageState]

	input       *simulation.Input
	demand      *simulation.Input
	soc         *simulation.Output
	consumption *simulation.Output
}

const (
	HydrogenStorageInput       = "HydrogenInput"
	HydrogenStorageDemand      = "HydrogenDemand"
	HydrogenStorageSOC         = "HydrogenSOC"
	HydrogenStorageConsumption = "ElectricityConsumption"
)

func NewHydrogenStorage(config HydrogenStorageConfig, params simulation.Parameters) (*HydrogenStorage, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	h := &HydrogenStorage{
		config: config,
		params: params,
		state: simulation.NewVersioned(hydrogenStorageState{
			FillKg: config.InitialSOCPercent / 100 * config.CapacityKg,
		}),
	}
	h.input = simulation.NewInput(config.Name, HydrogenStorageInput, false)
	h.demand = simulation.NewInput(config.Name, HydrogenStorageDemand, false)
	h.soc = simulation.NewOutput(config.Name, HydrogenStorageSOC)
	h.consumption = simulation.NewOutput(config.Name, HydrogenStorageConsumption)
	return h, nil
}

func (h *HydrogenStorage) Name() string { return h.config.Name }

func (h *HydrogenStorage) Inputs() []*simulation.Input {
	return []*simulation.Input{h.input, h.demand}
}

func (h *HydrogenStorage) Outputs() []*simulation.Output {
	return []*simulation.Output{h.soc, h.consumption}
}

func (h *HydrogenStorage) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescHydrogenSOC:          h.soc,
		DescH2StorageConsumption: h.consumption,
	}
}

func (h *HydrogenStorage) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescHydrogenProduction: h.input,
		DescHydrogenDemand:     h.demand,
	}
}

func (h *HydrogenStorage) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	stepSeconds := h.params.Clock.StepSeconds
	state := &h.state.Current

	if forceConvergence {
		h.state.RestoreProcessed()
	} else {
		charge := values.Get(h.input)
		if charge < 0 {
			charge = 0
		}
		charge = min(charge, h.config.MaxChargeKgPerS)
		storable := (h.config.CapacityKg - state.FillKg) / stepSeconds
		if charge > storable {
			slog.Warn("hydrogen storage full, clamping inflow",
				"component", h.config.Name, "timestep", timestep,
				"requestedKgPerS", charge, "acceptedKgPerS", storable)
			charge = max(storable, 0)
		}

		discharge := values.Get(h.demand)
		if discharge < 0 {
			discharge = 0
		}
		discharge = min(discharge, h.config.MaxDischargeKgPerS)
		available := state.FillKg / stepSeconds
		if discharge > available {
			slog.Warn("hydrogen storage empty, clamping demand",
				"component", h.config.Name, "timestep", timestep,
				"requestedKgPerS", discharge, "deliveredKgPerS", available)
			discharge = max(available, 0)
		}

		state.FillKg += (charge - discharge) * stepSeconds
		state.OverheadW = charge*h.config.ChargeEnergyWhPerKg*3600 + discharge*h.config.DischargeEnergyWhPerKg*3600
		h.state.MarkProcessed()
	}

	values.Set(h.soc, state.FillKg/h.config.CapacityKg*100)
	values.Set(h.consumption, state.OverheadW)
	return nil
}

func (h *HydrogenStorage) SaveState()    { h.state.Commit() }
func (h *HydrogenStorage) RestoreState() { h.state.Rollback() }

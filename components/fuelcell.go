package components

import (
	"fmt"
	"math"

	"hysim/cartesian"
	"hysim/simulation"
)

// Lower heating value of hydrogen in Wh per kg.
const hydrogenLHVWhPerKg = 33300.0

// FuelCellConfig describes the stack. The efficiency curve maps load
// fraction (0..1 of rated power) to electrical efficiency; consumption at a
// given delivery follows from the LHV of hydrogen.
type FuelCellConfig struct {
	Name            string            `mapstructure:"name"`
	PowerW          float64           `mapstructure:"powerW"`
	StandbyPowerW   float64           `mapstructure:"standbyPowerW"`
	EfficiencyCurve []cartesian.Point `mapstructure:"efficiencyCurve"`
}

func (c FuelCellConfig) validate() error {
	if c.PowerW <= 0 {
		return fmt.Errorf("fuel cell %q: rated power must be positive", c.Name)
	}
	if c.StandbyPowerW < 0 {
		return fmt.Errorf("fuel cell %q: standby power must not be negative", c.Name)
	}
	curve := cartesian.Curve{Points: c.EfficiencyCurve}
	_, maxLoad, ok := curve.Span()
	if !ok {
		return fmt.Errorf("fuel cell %q: efficiency curve needs at least two points", c.Name)
	}
	if maxLoad < 1 {
		return fmt.Errorf("fuel cell %q: efficiency curve must cover full load", c.Name)
	}
	for _, p := range c.EfficiencyCurve {
		if p.Y <= 0 || p.Y > 1 {
			return fmt.Errorf("fuel cell %q: efficiency %v at load %v outside (0, 1]", c.Name, p.Y, p.X)
		}
	}
	return nil
}

type fuelCellState struct {
	Running bool
}

// FuelCell delivers its rated power while commanded on and draws a constant
// standby power while off. Hydrogen consumption is reported in kg/s.
type FuelCell struct {
	config FuelCellConfig
	curve  cartesian.Curve
	state  simulation.Versioned[fuelCellState]

	onOff    *simulation.Input
	delivery *simulation.Output
	standby  *simulation.Output
	hydrogen *simulation.Output
}

const (
	FuelCellOnOffSignal         = "OnOffSignal"
	FuelCellElectricityDelivery = "ElectricityDelivery"
	FuelCellStandbyConsumption  = "StandbyConsumption"
	FuelCellHydrogenConsumption = "HydrogenConsumption"
)

func NewFuelCell(config FuelCellConfig) (*FuelCell, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	f := &FuelCell{
		config: config,
		curve:  cartesian.Curve{Points: config.EfficiencyCurve},
	}
	f.onOff = simulation.NewInput(config.Name, FuelCellOnOffSignal, true)
	f.delivery = simulation.NewOutput(config.Name, FuelCellElectricityDelivery)
	f.standby = simulation.NewOutput(config.Name, FuelCellStandbyConsumption)
	f.hydrogen = simulation.NewOutput(config.Name, FuelCellHydrogenConsumption)
	return f, nil
}

func (f *FuelCell) Name() string { return f.config.Name }

func (f *FuelCell) Inputs() []*simulation.Input { return []*simulation.Input{f.onOff} }

func (f *FuelCell) Outputs() []*simulation.Output {
	return []*simulation.Output{f.delivery, f.standby, f.hydrogen}
}

func (f *FuelCell) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescFuelCellDelivery:    f.delivery,
		DescFuelCellStandbyDraw: f.standby,
		DescHydrogenDemand:      f.hydrogen,
	}
}

func (f *FuelCell) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescFuelCellOnOffSignal: f.onOff,
	}
}

// HydrogenRateKgPerS returns the hydrogen mass flow needed to deliver the
// given electrical power, using the interpolated efficiency at that load.
func (f *FuelCell) HydrogenRateKgPerS(powerW float64) float64 {
	if powerW <= 0 {
		return 0
	}
	eff := f.curve.ValueAt(powerW / f.config.PowerW)
	if math.IsNaN(eff) || eff <= 0 {
		return 0
	}
	return powerW / (eff * hydrogenLHVWhPerKg) / 3600
}

func (f *FuelCell) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if forceConvergence {
		f.state.RestoreProcessed()
	} else {
		f.state.Current.Running = values.Get(f.onOff) > 0.5
		f.state.MarkProcessed()
	}

	if f.state.Current.Running {
		values.Set(f.delivery, f.config.PowerW)
		values.Set(f.standby, 0)
		values.Set(f.hydrogen, f.HydrogenRateKgPerS(f.config.PowerW))
	} else {
		values.Set(f.delivery, 0)
		values.Set(f.standby, f.config.StandbyPowerW)
		values.Set(f.hydrogen, 0)
	}
	return nil
}

func (f *FuelCell) SaveState()    { f.state.Commit() }
func (f *FuelCell) RestoreState() { f.state.Rollback() }

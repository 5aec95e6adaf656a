package components

import (
	"fmt"

	"hysim/simulation"
)

// ElectrolyzerConfig describes a fixed operating point device. The unit
// either draws its rated power and produces hydrogen at the rated rate, or
// it is off.
type ElectrolyzerConfig struct {
	Name                 string  `mapstructure:"name"`
	PowerW               float64 `mapstructure:"powerW"`
	HydrogenOutputKgPerH float64 `mapstructure:"hydrogenOutputKgPerH"`
}

func (c ElectrolyzerConfig) validate() error {
	if c.PowerW <= 0 {
		return fmt.Errorf("electrolyzer %q: rated power must be positive", c.Name)
	}
	if c.HydrogenOutputKgPerH <= 0 {
		return fmt.Errorf("electrolyzer %q: hydrogen output must be positive", c.Name)
	}
	return nil
}

type electrolyzerState struct {
	Running bool
}

type Electrolyzer struct {
	config ElectrolyzerConfig
	state  simulation.Versioned[electrolyzerState]

	onOff       *simulation.Input
	consumption *simulation.Output
	hydrogen    *simulation.Output
}

const (
	ElectrolyzerOnOffSignal    = "OnOffSignal"
	ElectrolyzerConsumption    = "ElectricityConsumption"
	ElectrolyzerHydrogenOutput = "HydrogenOutput"
)

func NewElectrolyzer(config ElectrolyzerConfig) (*Electrolyzer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	e := &Electrolyzer{config: config}
	e.onOff = simulation.NewInput(config.Name, ElectrolyzerOnOffSignal, true)
	e.consumption = simulation.NewOutput(config.Name, ElectrolyzerConsumption)
	e.hydrogen = simulation.NewOutput(config.Name, ElectrolyzerHydrogenOutput)
	return e, nil
}

func (e *Electrolyzer) Name() string { return e.config.Name }

func (e *Electrolyzer) Inputs() []*simulation.Input { return []*simulation.Input{e.onOff} }

func (e *Electrolyzer) Outputs() []*simulation.Output {
	return []*simulation.Output{e.consumption, e.hydrogen}
}

func (e *Electrolyzer) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescElectrolyzerConsumption: e.consumption,
		DescHydrogenProduction:      e.hydrogen,
	}
}

func (e *Electrolyzer) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescElectrolyzerOnOffSignal: e.onOff,
	}
}

func (e *Electrolyzer) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if forceConvergence {
		e.state.RestoreProcessed()
	} else {
		e.state.Current.Running = values.Get(e.onOff) > 0.5
		e.state.MarkProcessed()
	}

	if e.state.Current.Running {
		values.Set(e.consumption, e.config.PowerW)
		values.Set(e.hydrogen, e.config.HydrogenOutputKgPerH/3600)
	} else {
		values.Set(e.consumption, 0)
		values.Set(e.hydrogen, 0)
	}
	return nil
}

func (e *Electrolyzer) SaveState()    { e.state.Commit() }
func (e *Electrolyzer) RestoreState() { e.state.Rollback() }

package components

import (
	"fmt"

	"hysim/simulation"
)

// BatteryConfig sizes the electric storage. Power values are AC side,
// efficiencies apply on the way into respectively out of the cells.
type BatteryConfig struct {
	Name                string  `mapstructure:"name"`
	CapacityWh          float64 `mapstructure:"capacityWh"`
	MaxChargePowerW     float64 `mapstructure:"maxChargePowerW"`
	MaxDischargePowerW  float64 `mapstructure:"maxDischargePowerW"`
	MinSOCPercent       float64 `mapstructure:"minSocPercent"`
	MaxSOCPercent       float64 `mapstructure:"maxSocPercent"`
	InitialSOCPercent   float64 `mapstructure:"initialSocPercent"`
	ChargeEfficiency    float64 `mapstructure:"chargeEfficiency"`
	DischargeEfficiency float64 `mapstructure:"dischargeEfficiency"`
}

func (c BatteryConfig) validate() error {
	if c.CapacityWh <= 0 {
		return fmt.Errorf("battery %q: capacity must be positive", c.Name)
	}
	if c.MaxChargePowerW <= 0 || c.MaxDischargePowerW <= 0 {
		return fmt.Errorf("battery %q: power limits must be positive", c.Name)
	}
	if c.ChargeEfficiency <= 0 || c.ChargeEfficiency > 1 || c.DischargeEfficiency <= 0 || c.DischargeEfficiency > 1 {
		return fmt.Errorf("battery %q: efficiencies must be in (0, 1]", c.Name)
	}
	if c.MinSOCPercent < 0 || c.MaxSOCPercent > 100 || c.MinSOCPercent >= c.MaxSOCPercent {
		return fmt.Errorf("battery %q: SOC window [%v, %v] is invalid", c.Name, c.MinSOCPercent, c.MaxSOCPercent)
	}
	if c.InitialSOCPercent < c.MinSOCPercent || c.InitialSOCPercent > c.MaxSOCPercent {
		return fmt.Errorf("battery %q: initial SOC %v outside window", c.Name, c.InitialSOCPercent)
	}
	return nil
}

type batteryState struct {
	SOCWh          float64
	RealizedPowerW float64
}

// Battery realizes as much of the requested loading wish as its power limits
// and SOC window allow. Positive power means charging.
type Battery struct {
	config BatteryConfig
	params simulation.Parameters
	state  simulation.Versioned[batteryState]

	wish    *simulation.Input
	acPower *simulation.Output
	soc     *simulation.Output
}

const (
	BatteryLoadingPowerWish = "LoadingPowerWish"
	BatteryAcPower          = "AcPower"
	BatteryStateOfCharge    = "StateOfCharge"
)

func NewBattery(config BatteryConfig, params simulation.Parameters) (*Battery, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	b := &Battery{
		config: config,
		params: params,
		state: simulation.NewVersioned(batteryState{
			SOCWh: config.InitialSOCPercent / 100 * config.CapacityWh,
		}),
	}
	b.wish = simulation.NewInput(config.Name, BatteryLoadingPowerWish, true)
	b.acPower = simulation.NewOutput(config.Name, BatteryAcPower)
	b.soc = simulation.NewOutput(config.Name, BatteryStateOfCharge)
	return b, nil
}

func (b *Battery) Name() string { return b.config.Name }

func (b *Battery) Inputs() []*simulation.Input { return []*simulation.Input{b.wish} }

func (b *Battery) Outputs() []*simulation.Output {
	return []*simulation.Output{b.acPower, b.soc}
}

func (b *Battery) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescBatteryAcPower:       b.acPower,
		DescBatteryStateOfCharge: b.soc,
	}
}

func (b *Battery) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescBatteryLoadingWish: b.wish,
	}
}

func (b *Battery) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if forceConvergence {
		b.state.RestoreProcessed()
		b.emit(values)
		return nil
	}

	wish := values.Get(b.wish)
	stepHours := b.params.Clock.StepHours()
	state := &b.state.Current

	minWh := b.config.MinSOCPercent / 100 * b.config.CapacityWh
	maxWh := b.config.MaxSOCPercent / 100 * b.config.CapacityWh

	realized := 0.0
	switch {
	case wish > 0:
		power := min(wish, b.config.MaxChargePowerW)
		headroom := (maxWh - state.SOCWh) / (stepHours * b.config.ChargeEfficiency)
		power = min(power, headroom)
		if power < 0 {
			power = 0
		}
		state.SOCWh += power * stepHours * b.config.ChargeEfficiency
		realized = power
	case wish < 0:
		power := min(-wish, b.config.MaxDischargePowerW)
		available := (state.SOCWh - minWh) * b.config.DischargeEfficiency / stepHours
		power = min(power, available)
		if power < 0 {
			power = 0
		}
		state.SOCWh -= power * stepHours / b.config.DischargeEfficiency
		realized = -power
	}
	state.RealizedPowerW = realized

	b.state.MarkProcessed()
	b.emit(values)
	return nil
}

func (b *Battery) emit(values *simulation.StepValues) {
	values.Set(b.acPower, b.state.Current.RealizedPowerW)
	values.Set(b.soc, b.state.Current.SOCWh/b.config.CapacityWh*100)
}

func (b *Battery) SaveState()    { b.state.Commit() }
func (b *Battery) RestoreState() { b.state.Rollback() }

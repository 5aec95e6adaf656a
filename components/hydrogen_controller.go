package components

import (
	"fmt"
	"log/slog"
	"time"

	"hysim/prediction"
	"hysim/simulation"
)

// HydrogenControllerConfig holds the decision thresholds for the seasonal
// electrolyzer / fuel cell dispatch. Ratio thresholds are in percent, the
// season window is a closed timestep interval during which only the fuel
// cell may run.
type HydrogenControllerConfig struct {
	Name         string `mapstructure:"name"`
	SourceWeight int    `mapstructure:"sourceWeight"`

	ElectrolyzerPowerW float64 `mapstructure:"electrolyzerPowerW"`

	FuelCellSeasonBeginStep int `mapstructure:"fuelCellSeasonBeginStep"`
	FuelCellSeasonEndStep   int `mapstructure:"fuelCellSeasonEndStep"`
	FuelCellCadenceSteps    int `mapstructure:"fuelCellCadenceSteps"`

	HydrogenSOCCeilingPercent float64 `mapstructure:"hydrogenSocCeilingPercent"`
	HydrogenSOCFloorPercent   float64 `mapstructure:"hydrogenSocFloorPercent"`

	BatterySOCTurnOnPercent float64 `mapstructure:"batterySocTurnOnPercent"`
	BatterySOCStayOnPercent float64 `mapstructure:"batterySocStayOnPercent"`

	SurplusRatioThresholdPercent  float64 `mapstructure:"surplusRatioThresholdPercent"`
	HorizonEnergyThresholdPercent float64 `mapstructure:"horizonEnergyThresholdPercent"`

	MinRuntimeSeconds float64 `mapstructure:"minRuntimeSeconds"`
	MinStandbySeconds float64 `mapstructure:"minStandbySeconds"`
}

func (c HydrogenControllerConfig) validate() error {
	if c.ElectrolyzerPowerW <= 0 {
		return fmt.Errorf("hydrogen controller %q: electrolyzer power must be positive", c.Name)
	}
	if c.FuelCellSeasonBeginStep > c.FuelCellSeasonEndStep {
		return fmt.Errorf("hydrogen controller %q: fuel cell season ends before it begins", c.Name)
	}
	if c.FuelCellCadenceSteps <= 0 {
		return fmt.Errorf("hydrogen controller %q: fuel cell cadence must be positive", c.Name)
	}
	if c.HydrogenSOCFloorPercent >= c.HydrogenSOCCeilingPercent {
		return fmt.Errorf("hydrogen controller %q: hydrogen SOC floor %v above ceiling %v",
			c.Name, c.HydrogenSOCFloorPercent, c.HydrogenSOCCeilingPercent)
	}
	if c.MinRuntimeSeconds < 0 || c.MinStandbySeconds < 0 {
		return fmt.Errorf("hydrogen controller %q: runtime and standby minimums must not be negative", c.Name)
	}
	return nil
}

type hydrogenControllerState struct {
	RunElectrolyzer  bool
	RunFuelCell      bool
	ActivationStep   int
	DeactivationStep int
}

// ceilingRefusal describes a refused electrolyzer transition observed during
// the current timestep's iteration. It is rewritten on every pass and flushed
// into the counter when the step commits, so one refusal counts and logs once
// no matter how many passes the step took.
type ceilingRefusal struct {
	refused    bool
	stopping   bool
	timestep   int
	socPercent float64
}

// HydrogenController dispatches the electrolyzer during the PV-rich part of
// the year and the fuel cell during the configured season window. The two
// never run at the same time. Electrolyzer decisions combine instantaneous
// surplus with forecast energy over the prediction horizon; the fuel cell is
// re-evaluated on a fixed cadence against the hydrogen storage level.
type HydrogenController struct {
	config HydrogenControllerConfig
	params simulation.Parameters
	store  *prediction.Store
	state  simulation.Versioned[hydrogenControllerState]

	ceilingRefusals int
	refusal         ceilingRefusal

	pvPower     *simulation.Input
	consumption *simulation.Input
	batterySOC  *simulation.Input
	hydrogenSOC *simulation.Input

	electrolyzerSignal *simulation.Output
	fuelCellSignal     *simulation.Output
}

const (
	HydrogenControllerPVPower            = "PVPower"
	HydrogenControllerConsumption        = "ElectricityConsumption"
	HydrogenControllerBatterySOC         = "BatteryStateOfCharge"
	HydrogenControllerHydrogenSOC        = "HydrogenSOC"
	HydrogenControllerElectrolyzerSignal = "ElectrolyzerOnOffSignal"
	HydrogenControllerFuelCellSignal     = "FuelCellOnOffSignal"
)

func NewHydrogenController(config HydrogenControllerConfig, params simulation.Parameters, store *prediction.Store) (*HydrogenController, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	standbySteps := params.Clock.StepsIn(secondsToDuration(config.MinStandbySeconds))
	c := &HydrogenController{
		config: config,
		params: params,
		store:  store,
		state: simulation.NewVersioned(hydrogenControllerState{
			// Lets the first turn-on happen without waiting a full
			// standby window after a deactivation that never was.
			ActivationStep:   -1,
			DeactivationStep: -standbySteps,
		}),
	}
	c.pvPower = simulation.NewInput(config.Name, HydrogenControllerPVPower, true)
	c.consumption = simulation.NewInput(config.Name, HydrogenControllerConsumption, true)
	c.batterySOC = simulation.NewInput(config.Name, HydrogenControllerBatterySOC, true)
	c.hydrogenSOC = simulation.NewInput(config.Name, HydrogenControllerHydrogenSOC, false)
	c.electrolyzerSignal = simulation.NewOutput(config.Name, HydrogenControllerElectrolyzerSignal)
	c.fuelCellSignal = simulation.NewOutput(config.Name, HydrogenControllerFuelCellSignal)
	return c, nil
}

func (c *HydrogenController) Name() string { return c.config.Name }

func (c *HydrogenController) Inputs() []*simulation.Input {
	return []*simulation.Input{c.pvPower, c.consumption, c.batterySOC, c.hydrogenSOC}
}

func (c *HydrogenController) Outputs() []*simulation.Output {
	return []*simulation.Output{c.electrolyzerSignal, c.fuelCellSignal}
}

func (c *HydrogenController) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescElectrolyzerOnOffSignal: c.electrolyzerSignal,
		DescFuelCellOnOffSignal:     c.fuelCellSignal,
	}
}

func (c *HydrogenController) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescPVPower:              c.pvPower,
		DescHouseConsumption:     c.consumption,
		DescBatteryStateOfCharge: c.batterySOC,
		DescHydrogenSOC:          c.hydrogenSOC,
	}
}

// CeilingRefusals counts timesteps on which an electrolyzer transition was
// refused because the hydrogen storage was already at its ceiling.
func (c *HydrogenController) CeilingRefusals() int { return c.ceilingRefusals }

func (c *HydrogenController) fuelCellSeason(timestep int) bool {
	return timestep >= c.config.FuelCellSeasonBeginStep && timestep <= c.config.FuelCellSeasonEndStep
}

func (c *HydrogenController) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if forceConvergence {
		c.state.RestoreProcessed()
		c.emit(values)
		return nil
	}

	c.refusal = ceilingRefusal{}

	state := &c.state.Current
	hydrogenSOC := values.Get(c.hydrogenSOC)
	hydrogenKnown := c.hydrogenSOC.Connected()

	if c.fuelCellSeason(timestep) {
		if state.RunElectrolyzer {
			state.RunElectrolyzer = false
			state.DeactivationStep = timestep
		}
		if timestep%c.config.FuelCellCadenceSteps == 0 {
			state.RunFuelCell = hydrogenKnown && hydrogenSOC > c.config.HydrogenSOCFloorPercent
		}
	} else {
		state.RunFuelCell = false
		if err := c.dispatchElectrolyzer(timestep, values, state, hydrogenSOC, hydrogenKnown); err != nil {
			return err
		}
	}

	if state.RunElectrolyzer && state.RunFuelCell {
		return fmt.Errorf("controller %q at timestep %d: electrolyzer and fuel cell both commanded on: %w",
			c.config.Name, timestep, simulation.ErrStateConflict)
	}

	c.state.MarkProcessed()
	c.emit(values)
	return nil
}

func (c *HydrogenController) dispatchElectrolyzer(timestep int, values *simulation.StepValues, state *hydrogenControllerState, hydrogenSOC float64, hydrogenKnown bool) error {
	pv := values.Get(c.pvPower)
	consumption := values.Get(c.consumption)
	instantRatio := (pv - consumption) / c.config.ElectrolyzerPowerW * 100

	pvForecast, err := c.store.Horizon(prediction.KindPVProduction, c.config.SourceWeight, timestep)
	if err != nil {
		return fmt.Errorf("controller %q: %w", c.config.Name, err)
	}
	consForecast, err := c.store.Horizon(prediction.KindElectricConsumption, c.config.SourceWeight, timestep)
	if err != nil {
		return fmt.Errorf("controller %q: %w", c.config.Name, err)
	}

	stepSeconds := c.params.Clock.StepSeconds
	hydrogenFull := hydrogenKnown && hydrogenSOC >= c.config.HydrogenSOCCeilingPercent

	if !state.RunElectrolyzer {
		standbySteps := c.params.Clock.StepsIn(secondsToDuration(c.config.MinStandbySeconds))
		if timestep-state.DeactivationStep < standbySteps {
			return nil
		}
		if values.Get(c.batterySOC) < c.config.BatterySOCTurnOnPercent {
			return nil
		}
		if instantRatio < c.config.SurplusRatioThresholdPercent {
			return nil
		}
		horizonRatio := c.usableEnergyRatio(pvForecast, consForecast, c.params.PredictionHorizonSteps)
		if horizonRatio < c.config.HorizonEnergyThresholdPercent {
			return nil
		}
		if hydrogenFull {
			c.refusal = ceilingRefusal{refused: true, timestep: timestep, socPercent: hydrogenSOC}
			return nil
		}
		state.RunElectrolyzer = true
		state.ActivationStep = timestep
		return nil
	}

	runtimeSeconds := float64(timestep-state.ActivationStep) * stepSeconds
	if runtimeSeconds < c.config.MinRuntimeSeconds {
		return nil
	}
	if values.Get(c.batterySOC) > c.config.BatterySOCStayOnPercent {
		return nil
	}
	if instantRatio >= c.config.SurplusRatioThresholdPercent {
		return nil
	}
	standbyWindowRatio := c.usableEnergyRatio(pvForecast, consForecast, c.params.Clock.StepsIn(secondsToDuration(c.config.MinStandbySeconds)))
	if standbyWindowRatio >= c.config.HorizonEnergyThresholdPercent {
		if !hydrogenFull {
			return nil
		}
		c.refusal = ceilingRefusal{refused: true, stopping: true, timestep: timestep, socPercent: hydrogenSOC}
	}
	state.RunElectrolyzer = false
	state.DeactivationStep = timestep
	return nil
}

// usableEnergyRatio relates the forecast surplus the electrolyzer could
// absorb over the next windowSteps to the energy it would consume running
// flat out for that window, in percent. Surplus beyond the rated power is
// capped, deficits count as zero.
func (c *HydrogenController) usableEnergyRatio(pvForecast, consForecast []float64, windowSteps int) float64 {
	n := windowSteps
	if len(pvForecast) < n {
		n = len(pvForecast)
	}
	if len(consForecast) < n {
		n = len(consForecast)
	}
	if n <= 0 {
		return 0
	}
	stepHours := c.params.Clock.StepHours()
	usableWh := 0.0
	for i := 0; i < n; i++ {
		surplus := pvForecast[i] - consForecast[i]
		if surplus < 0 {
			surplus = 0
		}
		if surplus > c.config.ElectrolyzerPowerW {
			surplus = c.config.ElectrolyzerPowerW
		}
		usableWh += surplus * stepHours
	}
	demandWh := c.config.ElectrolyzerPowerW * float64(n) * stepHours
	return usableWh / demandWh * 100
}

func (c *HydrogenController) emit(values *simulation.StepValues) {
	values.Set(c.electrolyzerSignal, boolToSignal(c.state.Current.RunElectrolyzer))
	values.Set(c.fuelCellSignal, boolToSignal(c.state.Current.RunFuelCell))
}

func boolToSignal(on bool) float64 {
	if on {
		return 1
	}
	return 0
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (c *HydrogenController) SaveState() {
	if c.refusal.refused {
		c.ceilingRefusals++
		msg := "hydrogen storage at ceiling, refusing electrolyzer start"
		if c.refusal.stopping {
			msg = "hydrogen storage at ceiling, stopping electrolyzer despite forecast surplus"
		}
		slog.Warn(msg,
			"component", c.config.Name, "timestep", c.refusal.timestep,
			"hydrogenSocPercent", c.refusal.socPercent, "ceilingPercent", c.config.HydrogenSOCCeilingPercent)
	}
	c.state.Commit()
}

func (c *HydrogenController) RestoreState() { c.state.Rollback() }

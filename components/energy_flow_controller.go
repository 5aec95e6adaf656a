package components

import (
	"fmt"
	"log/slog"

	"hysim/simulation"
)

// EnergyFlowControllerConfig carries the season window that switches the
// balance between the electrolyzer regime and the fuel cell regime.
type EnergyFlowControllerConfig struct {
	Name                    string `mapstructure:"name"`
	FuelCellSeasonBeginStep int    `mapstructure:"fuelCellSeasonBeginStep"`
	FuelCellSeasonEndStep   int    `mapstructure:"fuelCellSeasonEndStep"`
}

func (c EnergyFlowControllerConfig) validate() error {
	if c.FuelCellSeasonBeginStep > c.FuelCellSeasonEndStep {
		return fmt.Errorf("energy flow controller %q: fuel cell season ends before it begins", c.Name)
	}
	return nil
}

type energyFlowState struct {
	BatteryWishW       float64
	GridExchangeW      float64
	PVToGridW          float64
	TotalConsumptionW  float64
	FuelCellToHouseW   float64
	FuelCellToBatteryW float64
	FuelCellToGridW    float64
	BatteryToHouseW    float64
	BatteryToStandbyW  float64
}

// attributionIssues collects the attribution problems seen during the current
// timestep's iteration. They are rewritten on every pass and counted and
// logged once when the step commits, not once per pass.
type attributionIssues struct {
	timestep       int
	unattributable bool
	fuelCellW      float64
	batteryW       float64
	gridW          float64
	clampedW       []float64
}

// EnergyFlowController closes the electrical balance around PV, house load,
// the hydrogen chain and the battery. It publishes the battery loading wish
// and reads back the realized battery power within the same timestep, which
// is what the per-step iteration resolves. Grid exchange is positive when
// exporting.
//
// In the fuel cell season it additionally attributes the realized flows to
// their sources, so downstream analysis can tell fuel cell energy apart from
// battery and grid energy. Attribution is diagnostic only: implausible sign
// combinations are clamped to zero and logged, never fed back into the
// balance.
type EnergyFlowController struct {
	config EnergyFlowControllerConfig
	state  simulation.Versioned[energyFlowState]

	clampCount int
	issues     attributionIssues

	pvPower          *simulation.Input
	houseConsumption *simulation.Input
	electrolyzerLoad *simulation.Input
	storageLoad      *simulation.Input
	fuelCellDelivery *simulation.Input
	fuelCellStandby  *simulation.Input
	batteryPower     *simulation.Input

	batteryWish       *simulation.Output
	gridExchange      *simulation.Output
	pvToGrid          *simulation.Output
	totalConsumption  *simulation.Output
	fuelCellToHouse   *simulation.Output
	fuelCellToBattery *simulation.Output
	fuelCellToGrid    *simulation.Output
	batteryToHouse    *simulation.Output
	batteryToStandby  *simulation.Output
}

const (
	EnergyFlowBatteryWish       = "BatteryLoadingPowerWish"
	EnergyFlowGridExchange      = "ElectricityToOrFromGrid"
	EnergyFlowPVToGrid          = "PVToGrid"
	EnergyFlowTotalConsumption  = "TotalElectricityConsumption"
	EnergyFlowFuelCellToHouse   = "FromFuelCellToHouse"
	EnergyFlowFuelCellToBattery = "FromFuelCellToBattery"
	EnergyFlowFuelCellToGrid    = "FromFuelCellToGrid"
	EnergyFlowBatteryToHouse    = "FromBatteryToHouse"
	EnergyFlowBatteryToStandby  = "FromBatteryToFuelCellStandby"
)

func NewEnergyFlowController(config EnergyFlowControllerConfig) (*EnergyFlowController, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := &EnergyFlowController{config: config}

	c.pvPower = simulation.NewInput(config.Name, "PVPower", true)
	c.houseConsumption = simulation.NewInput(config.Name, "HouseConsumption", true)
	c.electrolyzerLoad = simulation.NewInput(config.Name, "ElectrolyzerConsumption", false)
	c.storageLoad = simulation.NewInput(config.Name, "HydrogenStorageConsumption", false)
	c.fuelCellDelivery = simulation.NewInput(config.Name, "FuelCellDelivery", false)
	c.fuelCellStandby = simulation.NewInput(config.Name, "FuelCellStandbyConsumption", false)
	c.batteryPower = simulation.NewInput(config.Name, "BatteryAcPower", true)

	c.batteryWish = simulation.NewOutput(config.Name, EnergyFlowBatteryWish)
	c.gridExchange = simulation.NewOutput(config.Name, EnergyFlowGridExchange)
	c.pvToGrid = simulation.NewOutput(config.Name, EnergyFlowPVToGrid)
	c.totalConsumption = simulation.NewOutput(config.Name, EnergyFlowTotalConsumption)
	c.fuelCellToHouse = simulation.NewOutput(config.Name, EnergyFlowFuelCellToHouse)
	c.fuelCellToBattery = simulation.NewOutput(config.Name, EnergyFlowFuelCellToBattery)
	c.fuelCellToGrid = simulation.NewOutput(config.Name, EnergyFlowFuelCellToGrid)
	c.batteryToHouse = simulation.NewOutput(config.Name, EnergyFlowBatteryToHouse)
	c.batteryToStandby = simulation.NewOutput(config.Name, EnergyFlowBatteryToStandby)
	return c, nil
}

func (c *EnergyFlowController) Name() string { return c.config.Name }

func (c *EnergyFlowController) Inputs() []*simulation.Input {
	return []*simulation.Input{
		c.pvPower, c.houseConsumption, c.electrolyzerLoad, c.storageLoad,
		c.fuelCellDelivery, c.fuelCellStandby, c.batteryPower,
	}
}

func (c *EnergyFlowController) Outputs() []*simulation.Output {
	return []*simulation.Output{
		c.batteryWish, c.gridExchange, c.pvToGrid, c.totalConsumption,
		c.fuelCellToHouse, c.fuelCellToBattery, c.fuelCellToGrid,
		c.batteryToHouse, c.batteryToStandby,
	}
}

func (c *EnergyFlowController) Advertised() map[simulation.Descriptor]*simulation.Output {
	return map[simulation.Descriptor]*simulation.Output{
		DescBatteryLoadingWish: c.batteryWish,
	}
}

func (c *EnergyFlowController) Requested() map[simulation.Descriptor]*simulation.Input {
	return map[simulation.Descriptor]*simulation.Input{
		DescPVPower:                 c.pvPower,
		DescHouseConsumption:        c.houseConsumption,
		DescElectrolyzerConsumption: c.electrolyzerLoad,
		DescH2StorageConsumption:    c.storageLoad,
		DescFuelCellDelivery:        c.fuelCellDelivery,
		DescFuelCellStandbyDraw:     c.fuelCellStandby,
		DescBatteryAcPower:          c.batteryPower,
	}
}

// ClampCount counts attribution problems over committed timesteps: sign
// combinations that could not be attributed and flows clamped to zero.
func (c *EnergyFlowController) ClampCount() int { return c.clampCount }

func (c *EnergyFlowController) fuelCellSeason(timestep int) bool {
	return timestep >= c.config.FuelCellSeasonBeginStep && timestep <= c.config.FuelCellSeasonEndStep
}

func (c *EnergyFlowController) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if forceConvergence {
		c.state.RestoreProcessed()
		c.emit(values)
		return nil
	}

	pv := values.Get(c.pvPower)
	house := values.Get(c.houseConsumption)
	electrolyzer := values.Get(c.electrolyzerLoad)
	storage := values.Get(c.storageLoad)
	fuelCell := values.Get(c.fuelCellDelivery)
	standby := values.Get(c.fuelCellStandby)

	state := &c.state.Current
	*state = energyFlowState{}
	c.issues = attributionIssues{timestep: timestep}

	if c.fuelCellSeason(timestep) {
		c.balanceFuelCellSeason(values, state, pv, house, storage, fuelCell, standby)
		state.TotalConsumptionW = house + electrolyzer + storage + standby
	} else {
		surplus := pv - house
		loads := electrolyzer + storage
		wish := surplus - loads
		state.BatteryWishW = wish
		values.Set(c.batteryWish, wish)

		realized := values.Get(c.batteryPower)
		state.GridExchangeW = surplus - loads - realized
		if state.GridExchangeW > 0 {
			state.PVToGridW = state.GridExchangeW
		}
		state.TotalConsumptionW = house + loads
	}

	c.state.MarkProcessed()
	c.emit(values)
	return nil
}

// balanceFuelCellSeason first lets PV surplus cover the fuel cell standby
// draw, then asks the battery to absorb or back the remaining imbalance and
// derives the grid exchange from the realized battery power.
func (c *EnergyFlowController) balanceFuelCellSeason(values *simulation.StepValues, state *energyFlowState, pv, house, storage, fuelCell, standby float64) {
	surplus := pv - house
	pvToGrid := 0.0
	houseDeficit := surplus
	if surplus > 0 {
		pvToGrid = surplus
		houseDeficit = 0
	}

	standbyResidual := -standby
	if pvToGrid >= standby {
		pvToGrid -= standby
		standbyResidual = 0
	} else if pvToGrid > 0 {
		standbyResidual = pvToGrid - standby
		pvToGrid = 0
	}

	wish := houseDeficit + standbyResidual - storage + fuelCell
	state.BatteryWishW = wish
	values.Set(c.batteryWish, wish)

	realized := values.Get(c.batteryPower)
	state.GridExchangeW = houseDeficit + standbyResidual - storage + fuelCell - realized + pvToGrid
	state.PVToGridW = pvToGrid

	c.attribute(state, fuelCell, realized, storage, standby, standbyResidual)
}

// attribute splits the realized flows by source based on the signs of fuel
// cell delivery, battery power and grid exchange. Combinations that cannot
// occur in a consistent balance get zeroed and reported at step commit.
func (c *EnergyFlowController) attribute(state *energyFlowState, fuelCell, battery, storage, standby, standbyResidual float64) {
	grid := state.GridExchangeW
	switch {
	case fuelCell > 0 && battery >= 0 && grid >= 0:
		state.FuelCellToBatteryW = battery
		state.FuelCellToHouseW = fuelCell - storage - grid - battery
		state.FuelCellToGridW = grid - state.PVToGridW
	case fuelCell > 0 && battery <= 0 && grid <= 0:
		state.FuelCellToHouseW = fuelCell - storage
		state.BatteryToHouseW = -battery
	case fuelCell > 0 && battery > 0 && grid < 0:
		state.FuelCellToBatteryW = battery
		state.FuelCellToHouseW = fuelCell - storage - battery
	case fuelCell > 0 && battery < 0 && grid > 0:
		state.BatteryToHouseW = -battery
		state.FuelCellToHouseW = fuelCell - storage - grid
	case fuelCell == 0 && standby > 0 && battery < 0:
		state.BatteryToStandbyW = min(-standbyResidual, -battery)
		state.BatteryToHouseW = -battery - state.BatteryToStandbyW
	case fuelCell == 0:
		// PV and grid alone, nothing to attribute.
	default:
		c.issues.unattributable = true
		c.issues.fuelCellW = fuelCell
		c.issues.batteryW = battery
		c.issues.gridW = grid
	}

	for _, flow := range []*float64{
		&state.FuelCellToHouseW, &state.FuelCellToBatteryW, &state.FuelCellToGridW,
		&state.BatteryToHouseW, &state.BatteryToStandbyW,
	} {
		if *flow < 0 {
			c.issues.clampedW = append(c.issues.clampedW, *flow)
			*flow = 0
		}
	}
}

func (c *EnergyFlowController) emit(values *simulation.StepValues) {
	state := c.state.Current
	values.Set(c.batteryWish, state.BatteryWishW)
	values.Set(c.gridExchange, state.GridExchangeW)
	values.Set(c.pvToGrid, state.PVToGridW)
	values.Set(c.totalConsumption, state.TotalConsumptionW)
	values.Set(c.fuelCellToHouse, state.FuelCellToHouseW)
	values.Set(c.fuelCellToBattery, state.FuelCellToBatteryW)
	values.Set(c.fuelCellToGrid, state.FuelCellToGridW)
	values.Set(c.batteryToHouse, state.BatteryToHouseW)
	values.Set(c.batteryToStandby, state.BatteryToStandbyW)
}

func (c *EnergyFlowController) SaveState() {
	if c.issues.unattributable {
		c.clampCount++
		slog.Warn("energy flows not attributable",
			"component", c.config.Name, "timestep", c.issues.timestep,
			"fuelCellW", c.issues.fuelCellW, "batteryW", c.issues.batteryW, "gridW", c.issues.gridW)
	}
	for _, valueW := range c.issues.clampedW {
		c.clampCount++
		slog.Warn("negative attributed flow clamped to zero",
			"component", c.config.Name, "timestep", c.issues.timestep, "valueW", valueW)
	}
	c.state.Commit()
}

func (c *EnergyFlowController) RestoreState() { c.state.Rollback() }

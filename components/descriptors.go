// Package components holds the concrete device and controller models that are
// wired into a simulation graph: profile playback, battery, electrolyzer,
// fuel cell, hydrogen storage and the two controllers on top of them.
package components

import "hysim/simulation"

// Descriptors advertised by producer components for default wiring. Consumers
// request inputs by descriptor instead of naming the producing type.
const (
	DescPVPower                 simulation.Descriptor = "pv_power"
	DescHouseConsumption        simulation.Descriptor = "house_consumption"
	DescBatteryStateOfCharge    simulation.Descriptor = "battery_state_of_charge"
	DescBatteryAcPower          simulation.Descriptor = "battery_ac_power"
	DescBatteryLoadingWish      simulation.Descriptor = "battery_loading_wish"
	DescHydrogenSOC             simulation.Descriptor = "hydrogen_soc"
	DescHydrogenProduction      simulation.Descriptor = "hydrogen_production"
	DescHydrogenDemand          simulation.Descriptor = "hydrogen_demand"
	DescElectrolyzerConsumption simulation.Descriptor = "electrolyzer_consumption"
	DescElectrolyzerOnOffSignal simulation.Descriptor = "electrolyzer_on_off_signal"
	DescFuelCellOnOffSignal     simulation.Descriptor = "fuel_cell_on_off_signal"
	DescFuelCellDelivery        simulation.Descriptor = "fuel_cell_delivery"
	DescFuelCellStandbyDraw     simulation.Descriptor = "fuel_cell_standby_draw"
	DescH2StorageConsumption    simulation.Descriptor = "hydrogen_storage_consumption"
)

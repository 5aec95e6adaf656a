package main

import (
	"fmt"

	"hysim/components"
	"hysim/config"
	"hysim/prediction"
	"hysim/simulation"
	"hysim/timeutils"
)

// Component type names accepted in scenario files.
const (
	typeProfileSource        = "profile_source"
	typeBattery              = "battery"
	typeElectrolyzer         = "electrolyzer"
	typeFuelCell             = "fuel_cell"
	typeHydrogenStorage      = "hydrogen_storage"
	typeHydrogenController   = "hydrogen_controller"
	typeEnergyFlowController = "energy_flow_controller"
)

// buildComponent turns one scenario block into a live component. The block
// name overrides whatever name the parameter block may carry so the scenario
// level uniqueness check holds.
func buildComponent(block config.ComponentBlock, params simulation.Parameters, store *prediction.Store) (simulation.Component, error) {
	switch block.Type {
	case typeProfileSource:
		var cfg components.ProfileSourceConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewProfileSource(cfg, params, store)
	case typeBattery:
		var cfg components.BatteryConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewBattery(cfg, params)
	case typeElectrolyzer:
		var cfg components.ElectrolyzerConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewElectrolyzer(cfg)
	case typeFuelCell:
		var cfg components.FuelCellConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewFuelCell(cfg)
	case typeHydrogenStorage:
		var cfg components.HydrogenStorageConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewHydrogenStorage(cfg, params)
	case typeHydrogenController:
		var cfg components.HydrogenControllerConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewHydrogenController(cfg, params, store)
	case typeEnergyFlowController:
		var cfg components.EnergyFlowControllerConfig
		if err := config.DecodeParams(block.Params, &cfg); err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		cfg.Name = block.Name
		return components.NewEnergyFlowController(cfg)
	default:
		return nil, fmt.Errorf("component %q: unknown type %q", block.Name, block.Type)
	}
}

// buildEngine assembles the component graph from a scenario and wires it.
func buildEngine(scenario config.Scenario, store *prediction.Store) (*simulation.Engine, error) {
	params := simulation.Parameters{
		Clock: timeutils.SimClock{
			Start:       scenario.Start,
			StepSeconds: scenario.SecondsPerTimestep,
		},
		PredictionHorizonSteps: scenario.PredictionHorizonSteps,
	}
	engine := simulation.New(params)
	for _, block := range scenario.Components {
		component, err := buildComponent(block, params, store)
		if err != nil {
			return nil, err
		}
		engine.Add(component)
	}
	if err := engine.Connect(); err != nil {
		return nil, err
	}
	return engine, nil
}

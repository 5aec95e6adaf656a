package components

import (
	"fmt"

	"hysim/prediction"
	"hysim/simulation"
)

// ProfileSourceConfig describes a precomputed power series played back one
// value per timestep, for example a PV yield profile or a household load
// profile in W.
type ProfileSourceConfig struct {
	Name         string    `mapstructure:"name"`
	Kind         string    `mapstructure:"kind"`
	SourceWeight int       `mapstructure:"sourceWeight"`
	SeriesW      []float64 `mapstructure:"seriesW"`
}

func (c ProfileSourceConfig) validate() error {
	switch prediction.Kind(c.Kind) {
	case prediction.KindPVProduction, prediction.KindElectricConsumption:
	default:
		return fmt.Errorf("profile source %q: unknown kind %q", c.Name, c.Kind)
	}
	if len(c.SeriesW) == 0 {
		return fmt.Errorf("profile source %q: empty series", c.Name)
	}
	return nil
}

// ProfileSource plays back a fixed series and publishes the upcoming horizon
// window to the prediction store every timestep, so predictive controllers
// always see a fresh forecast stamped with the current timestep.
type ProfileSource struct {
	config ProfileSourceConfig
	params simulation.Parameters
	store  *prediction.Store
	kind   prediction.Kind

	power *simulation.Output
}

const ProfileSourcePower = "Power"

func NewProfileSource(config ProfileSourceConfig, params simulation.Parameters, store *prediction.Store) (*ProfileSource, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	p := &ProfileSource{
		config: config,
		params: params,
		store:  store,
		kind:   prediction.Kind(config.Kind),
	}
	p.power = simulation.NewOutput(config.Name, ProfileSourcePower)
	return p, nil
}

func (p *ProfileSource) Name() string { return p.config.Name }

func (p *ProfileSource) Inputs() []*simulation.Input { return nil }

func (p *ProfileSource) Outputs() []*simulation.Output { return []*simulation.Output{p.power} }

func (p *ProfileSource) Advertised() map[simulation.Descriptor]*simulation.Output {
	desc := DescHouseConsumption
	if p.kind == prediction.KindPVProduction {
		desc = DescPVPower
	}
	return map[simulation.Descriptor]*simulation.Output{desc: p.power}
}

func (p *ProfileSource) Simulate(timestep int, values *simulation.StepValues, forceConvergence bool) error {
	if timestep >= len(p.config.SeriesW) {
		return fmt.Errorf("profile source %q: series exhausted at timestep %d", p.config.Name, timestep)
	}
	values.Set(p.power, p.config.SeriesW[timestep])

	end := timestep + p.params.PredictionHorizonSteps
	if end > len(p.config.SeriesW) {
		end = len(p.config.SeriesW)
	}
	p.store.Publish(p.kind, p.config.SourceWeight, timestep, p.config.SeriesW[timestep:end])
	return nil
}

// Playback is stateless, the series index is the timestep itself.
func (p *ProfileSource) SaveState()    {}
func (p *ProfileSource) RestoreState() {}

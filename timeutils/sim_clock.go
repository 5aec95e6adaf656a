package timeutils

import "time"

// SimClock maps between discrete simulation timesteps and absolute time.
// Timestep 0 starts at `Start`, every step is `StepSeconds` long.
type SimClock struct {
	Start       time.Time
	StepSeconds float64
}

// TimeAt returns the absolute time at the beginning of the given timestep.
func (c SimClock) TimeAt(timestep int) time.Time {
	return c.Start.Add(time.Duration(float64(timestep) * c.StepSeconds * float64(time.Second)))
}

// StepsIn returns the number of whole timesteps that fit into the given duration,
// rounding down.
func (c SimClock) StepsIn(d time.Duration) int {
	return int(d.Seconds() / c.StepSeconds)
}

// RunPeriod returns the absolute period covered by a run of the given length.
func (c SimClock) RunPeriod(timesteps int) Period {
	return Period{
		Start: c.Start,
		End:   c.TimeAt(timesteps),
	}
}

// StepHours returns the length of one timestep in hours. Useful for converting
// instantaneous Watt values into Wh.
func (c SimClock) StepHours() float64 {
	return c.StepSeconds / 3600
}

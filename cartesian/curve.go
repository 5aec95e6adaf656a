package cartesian

import "math"

// Point represents a cartesian X,Y point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a piecewise-linear curve described by its breakpoints, ordered by ascending X.
type Curve struct {
	Points []Point `json:"points"`
}

// ValueAt returns the Y value of the curve at the given X, interpolating linearly
// between the two neighbouring breakpoints.
// NaN is returned if `x` is outside the horizontal span of the curve.
func (c *Curve) ValueAt(x float64) float64 {

	// Loop over each pair of points in the curve
	for i := 0; i < len(c.Points)-1; i++ {
		p1 := c.Points[i]
		p2 := c.Points[i+1]

		if p1.X <= x && x <= p2.X {
			return linearInterpolation(p1, p2, x)
		}
	}
	return math.NaN()
}

// Span returns the horizontal range covered by the curve. A curve with fewer
// than two points spans nothing.
func (c *Curve) Span() (min, max float64, ok bool) {
	if len(c.Points) < 2 {
		return 0, 0, false
	}
	return c.Points[0].X, c.Points[len(c.Points)-1].X, true
}

// linearInterpolation returns the y-value at `x` given two points.
func linearInterpolation(p1, p2 Point, x float64) float64 {
	return p1.Y + (x-p1.X)*((p2.Y-p1.Y)/(p2.X-p1.X))
}

package cartesian

import (
	"math"
	"testing"
)

func TestLinearInterpolate(t *testing.T) {

	type subTest struct {
		name      string
		p1        Point
		p2        Point
		x         float64
		expectedY float64
	}

	subTests := []subTest{
		{"positive gradient, positive value", Point{0, 0}, Point{1, 1}, 0.5, 0.5},
		{"positive gradient, negative value", Point{0, 0}, Point{-1, -1}, -0.5, -0.5},
		{"negative gradient, positive value", Point{6, 6}, Point{12, 0}, 9, 3},
		{"negative gradient, negative value", Point{3, 6}, Point{-3, -6}, -1.5, -3},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			y := linearInterpolation(subTest.p1, subTest.p2, subTest.x)
			if y != subTest.expectedY {
				t.Errorf("Got %f, expected %f", y, subTest.expectedY)
			}
		})
	}

}

func TestValueAt(t *testing.T) {

	type subTest struct {
		name      string
		curve     Curve
		x         float64
		expectedY float64
	}

	efficiency := Curve{
		Points: []Point{
			{0.2, 0.35},
			{0.5, 0.48},
			{1.0, 0.42},
		},
	}

	subTests := []subTest{
		{"at first breakpoint", efficiency, 0.2, 0.35},
		{"between first pair", efficiency, 0.35, 0.415},
		{"at middle breakpoint", efficiency, 0.5, 0.48},
		{"between second pair", efficiency, 0.75, 0.45},
		{"at last breakpoint", efficiency, 1.0, 0.42},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			y := subTest.curve.ValueAt(subTest.x)
			if math.Abs(y-subTest.expectedY) > 1e-9 {
				t.Errorf("Got %f, expected %f", y, subTest.expectedY)
			}
		})
	}

	t.Run("outside span", func(t *testing.T) {
		if y := efficiency.ValueAt(1.5); !math.IsNaN(y) {
			t.Errorf("Expected NaN outside the curve span, got %f", y)
		}
	})
}

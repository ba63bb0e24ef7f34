package sim

import (
	"errors"
	"math"
)

// curveSamples is the fixed resolution of a speed curve: 101 evenly spaced
// samples from the start line to the finish line.
const curveSamples = 101

// CurvePoint is one (distance, speed) breakpoint of a speed curve.
type CurvePoint struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
}

// SpeedCurve is a runner's planned speed over the track, sampled once per
// roster load and treated as immutable afterwards. Simulation-time variance
// and the final kick are applied on top of it, never baked in.
type SpeedCurve struct {
	points []CurvePoint
}

var errCurveTooShort = errors.New("sim: speed curve needs at least 2 samples")

// CalculateSpeedCurve builds the piecewise profile for a runner's static
// attributes over the given track length.
//
// The profile has three phases:
//   - acceleration: the first 5%–15% of the track (shorter for higher
//     acceleration trait), ramping from 40% of max speed up to cruising
//     speed with a smoothstep ease;
//   - cruising: flat at 85% of max speed until 85% of the track;
//   - final stretch: a linear ramp toward the push speed, which higher
//     stamina pulls closer to max speed.
func CalculateSpeedCurve(attrs Attributes, baseSpeed, trackLength float64) SpeedCurve {
	maxSpeed := baseSpeed * (0.6 + attrs.Speed*0.7)
	cruisingSpeed := maxSpeed * 0.85
	pushSpeed := cruisingSpeed + (maxSpeed-cruisingSpeed)*(0.5+attrs.Stamina*0.5)

	accelEnd := trackLength * (0.15 - attrs.Acceleration*0.1)
	finalStart := trackLength * 0.85

	points := make([]CurvePoint, curveSamples)
	for i := range points {
		d := trackLength * float64(i) / float64(curveSamples-1)

		var speed float64
		switch {
		case d < accelEnd && accelEnd > 0:
			t := d / accelEnd
			eased := t * t * (3 - 2*t)
			speed = maxSpeed*0.4 + (cruisingSpeed-maxSpeed*0.4)*eased
		case d < finalStart:
			speed = cruisingSpeed
		default:
			t := 0.0
			if trackLength > finalStart {
				t = (d - finalStart) / (trackLength - finalStart)
			}
			speed = cruisingSpeed + (pushSpeed-cruisingSpeed)*t
		}

		points[i] = CurvePoint{Distance: d, Speed: speed}
	}

	return SpeedCurve{points: points}
}

// SpeedAt linearly interpolates the curve at the given distance. Beyond the
// last sample it clamps to the final speed; it never extrapolates.
func (c SpeedCurve) SpeedAt(distance float64) float64 {
	if len(c.points) == 0 {
		return 0
	}
	if distance <= c.points[0].Distance {
		return c.points[0].Speed
	}
	last := c.points[len(c.points)-1]
	if distance >= last.Distance {
		return last.Speed
	}

	// Samples are evenly spaced, so the bracketing pair is a direct index.
	span := last.Distance - c.points[0].Distance
	idx := int(float64(len(c.points)-1) * (distance - c.points[0].Distance) / span)
	if idx >= len(c.points)-1 {
		idx = len(c.points) - 2
	}
	lo, hi := c.points[idx], c.points[idx+1]
	if hi.Distance == lo.Distance {
		return lo.Speed
	}
	t := (distance - lo.Distance) / (hi.Distance - lo.Distance)
	return lo.Speed + (hi.Speed-lo.Speed)*t
}

// Points returns a copy of the sampled breakpoints.
func (c SpeedCurve) Points() []CurvePoint {
	return append([]CurvePoint(nil), c.points...)
}

// RaceTime integrates the estimated time to traverse the whole curve using
// trapezoidal averaging of consecutive samples. It feeds the estimated-time
// display only; the simulation never consumes it. Segments whose average
// speed is zero contribute no time.
func RaceTime(c SpeedCurve) (float64, error) {
	if len(c.points) < 2 {
		return 0, errCurveTooShort
	}
	total := 0.0
	for i := 1; i < len(c.points); i++ {
		segment := c.points[i].Distance - c.points[i-1].Distance
		avg := (c.points[i].Speed + c.points[i-1].Speed) / 2
		if avg <= 0 || math.IsNaN(avg) {
			continue
		}
		total += segment / avg
	}
	return total, nil
}

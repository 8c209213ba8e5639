package scenes

import "math"

// SampleCount is one frame per started second of scene duration, at least
// two for scenes of one second or longer.
func SampleCount(duration float64) int {
	if duration < 1.0 {
		return 1
	}
	n := int(math.Ceil(duration))
	if n < 2 {
		n = 2
	}
	return n
}

// SampleTimes returns the timestamps to sample for a scene: one per second
// from the start, or evenly spaced when the scene is too short for that.
func SampleTimes(b Boundary) []float64 {
	d := b.Duration()
	n := SampleCount(d)

	step := 1.0
	if float64(n-1) >= d {
		step = d / float64(n)
	}

	times := make([]float64, n)
	for i := range times {
		times[i] = b.Start + float64(i)*step
	}
	return times
}

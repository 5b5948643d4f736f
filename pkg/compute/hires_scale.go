package compute

// scaleCountBy converts d ticks of a freq Hz counter into units per second
// without overflowing for long intervals.
func scaleCountBy(d, freq, units int64) int64 {
	return d/freq*units + d%freq*units/freq
}

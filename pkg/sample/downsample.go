package sample

import "github.com/chewxy/math32"

// DownsampleSamples downsamples a slice of samples to a maximum number of points.
// Uses simple decimation; the first sample is always kept.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// A maxPoints of zero or less keeps every sample.
func DownsampleSamples(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	step := float64(len(samples)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(samples) {
			dst = append(dst, samples[idx])
		}
	}

	return dst
}

// Range is the span of one channel over a log.
type Range struct {
	Min, Max, Mean float32
}

// Stats returns the range of every channel present in samples.
func Stats(samples []Sample) []Range {
	var channels int
	for _, s := range samples {
		channels = max(channels, len(s.Volts))
	}

	ranges := make([]Range, channels)
	counts := make([]int, channels)
	for ch := range ranges {
		ranges[ch] = Range{Min: math32.Inf(1), Max: math32.Inf(-1)}
	}

	for _, s := range samples {
		for ch, v := range s.Volts {
			ranges[ch].Min = math32.Min(ranges[ch].Min, v)
			ranges[ch].Max = math32.Max(ranges[ch].Max, v)
			ranges[ch].Mean += v
			counts[ch]++
		}
	}

	for ch := range ranges {
		ranges[ch].Mean /= float32(counts[ch])
	}
	return ranges
}

package sample

import "context"

// NewAveragingConverter creates a moving average over windowSize consecutive
// Samples. Each input produces one output carrying the index and time of the
// newest sample. Partial trailing records are averaged over the channels they have.
// The converter stops and closes its output when ctx is done.
func NewAveragingConverter(ctx context.Context, windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:]
				}
				select {
				case out <- averageSamples(buffer):
				case <-ctx.Done():
					return
				}
			}
		}()

		return out
	}
}

// averageSamples averages a window of samples channel by channel.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	last := samples[len(samples)-1]
	avg := Sample{
		Index:   last.Index,
		Elapsed: last.Elapsed,
		Volts:   make([]float32, len(last.Volts)),
	}

	for ch := range avg.Volts {
		var sum float32
		var n int
		for _, s := range samples {
			if ch < len(s.Volts) {
				sum += s.Volts[ch]
				n++
			}
		}
		avg.Volts[ch] = sum / float32(n)
	}

	return avg
}

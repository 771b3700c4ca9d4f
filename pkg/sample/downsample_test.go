package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Index: i, Volts: []float32{float32(i) * 0.01}}
	}
	return samples
}

func TestDownsampleSamples_NoDownsampling(t *testing.T) {
	samples := ramp(3)

	result := DownsampleSamples(nil, samples, 10)
	require.Len(t, result, 3)
	assert.Equal(t, samples, result)

	// Should reuse dst
	dst := make([]Sample, 0, 10)
	result = DownsampleSamples(dst, samples, 10)
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result))

	result = DownsampleSamples(nil, samples, 0)
	assert.Equal(t, samples, result, "zero keeps everything")
}

func TestDownsampleSamples_WithDownsampling(t *testing.T) {
	samples := ramp(100)

	dst := make([]Sample, 0, 20)
	result := DownsampleSamples(dst, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result))

	assert.Equal(t, samples[0], result[0])
	for i := 1; i < len(result); i++ {
		assert.Greater(t, result[i].Index, result[i-1].Index)
	}
	assert.GreaterOrEqual(t, result[len(result)-1].Index, 80)
}

func TestDownsampleSamples_SmallDst(t *testing.T) {
	result := DownsampleSamples(make([]Sample, 0, 2), ramp(50), 5)
	require.Len(t, result, 5)
	assert.Equal(t, []int{0, 10, 20, 30, 40}, []int{
		result[0].Index, result[1].Index, result[2].Index, result[3].Index, result[4].Index,
	})
}

func TestStats(t *testing.T) {
	samples := []Sample{
		volts(1, 5),
		volts(3, 4),
		volts(2),
	}

	got := Stats(samples)
	require.Len(t, got, 2)

	assert.InDelta(t, 1.0, got[0].Min, 1e-6)
	assert.InDelta(t, 3.0, got[0].Max, 1e-6)
	assert.InDelta(t, 2.0, got[0].Mean, 1e-6)

	assert.InDelta(t, 4.0, got[1].Min, 1e-6)
	assert.InDelta(t, 5.0, got[1].Max, 1e-6)
	assert.InDelta(t, 4.5, got[1].Mean, 1e-6)

	assert.Empty(t, Stats(nil))
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/itohio/flashlog/pkg/link"
	"github.com/itohio/flashlog/pkg/options"
	"github.com/itohio/flashlog/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteVolts(t *testing.T) {
	var buf bytes.Buffer
	err := writeVolts(&buf, 2, []sample.Sample{
		{Index: 0, Elapsed: 0, Volts: []float32{0.5, 2.5}},
		{Index: 1, Elapsed: 3 * time.Second, Volts: []float32{0.25}},
	})
	require.NoError(t, err)

	assert.Equal(t, "index,elapsed_s,ch0_V,ch1_V\n"+
		"0,0,0.5000,2.5000\n"+
		"1,3,0.2500,\n", buf.String())
}

func TestWriteRaw(t *testing.T) {
	opts, err := options.Parse("vV3#x")
	require.NoError(t, err)

	dl := &link.Log{
		Header:  "vV3#x",
		Options: opts,
		Valid:   true,
		Records: []link.RawRecord{
			{Index: 0, Values: []uint16{1, 1023}},
			{Index: 1, Values: []uint16{7}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRaw(&buf, dl))
	assert.Equal(t, "index,elapsed_s,ch0_adc,ch1_adc\n"+
		"0,0,1,1023\n"+
		"1,3,7,\n", buf.String())
}

func TestWriteRaw_InvalidOptions(t *testing.T) {
	dl := &link.Log{
		Header:  "?",
		Records: []link.RawRecord{{Index: 0, Values: []uint16{512}}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRaw(&buf, dl))
	assert.Equal(t, "index,elapsed_s,ch0_adc\n0,,512\n", buf.String())
}

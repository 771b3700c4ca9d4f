package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type CommandLineOptions struct {
	ConfigPath  string `short:"c" long:"config" default:"config.yaml" description:"configuration file"`
	Port        string `short:"p" long:"port" description:"serial port override (e.g., COM3 or /dev/ttyUSB0)"`
	Output      string `short:"o" long:"output" description:"CSV output file (default stdout)"`
	Average     int    `short:"a" long:"average-samples" default:"-1" description:"moving average window (0 = disabled, overrides config)"`
	MaxPoints   int    `short:"m" long:"max-points" default:"-1" description:"decimate to at most this many records (0 = all, overrides config)"`
	Raw         bool   `short:"r" long:"raw" description:"write ADC readings instead of volts"`
	Erase       bool   `long:"erase" description:"erase the log after a successful download"`
	Mock        bool   `long:"mock" description:"use a mocked logger instead of the serial port"`
	MockRecords int    `long:"mock-records" default:"1000" description:"number of records held by the mocked logger"`
	List        bool   `short:"l" long:"list" description:"list serial ports and exit"`
}

func readCommandLineOptions() CommandLineOptions {
	opts := CommandLineOptions{}
	_, err := flags.Parse(&opts)

	switch errt := err.(type) {
	case *flags.Error:
		if errt.Type == flags.ErrHelp {
			os.Exit(0)
		}
	}

	if err != nil {
		logrus.WithError(err).Fatal("could not parse command line arguments")
	}

	return opts
}

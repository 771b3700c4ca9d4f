package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type CommandLineOptions struct {
	ConfigPath string  `short:"c" long:"config" default:"config.yaml" description:"configuration file"`
	Port       string  `short:"p" long:"port" description:"serve the console on this serial port instead of stdio"`
	Image      string  `short:"i" long:"image" description:"flash image file"`
	EEPROM     string  `short:"e" long:"eeprom" description:"configuration area database"`
	Speed      float64 `short:"s" long:"speed" default:"1" description:"simulated seconds per real second"`
	Sentinel   bool    `long:"sentinel" description:"stop downloads at two consecutive full-scale readings"`
	Verbose    bool    `short:"v" long:"verbose" description:"log debug messages"`
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

//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_INTERNAL_MV = 1100 // Bandgap reference in millivolts
	ADC_SUPPLY_MV   = 3300 // Supply reference in millivolts
	ADC_RESOLUTION  = 10   // Readings are stored as 10-bit values

	// Serial configuration
	UART_BAUD_RATE = 19200

	// Flash blocks at the end of the data area reserved for the option line
	EEPROM_BLOCKS = 1

	// Console poll interval while waiting for input
	POLL_INTERVAL_MS = 5
)

// ADC pins, one per channel
var adcPins = [...]machine.Pin{machine.A0, machine.A1, machine.A2, machine.A3}

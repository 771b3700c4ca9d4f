//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"

	"github.com/itohio/flashlog/pkg/datalogger"
)

var uart = machine.UART0

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	machine.InitADC()
	adc := newADC(adcPins[:])

	log, area := splitFlash(machine.Flash, EEPROM_BLOCKS)

	logger := datalogger.New(datalogger.Hardware{
		Port:   &uartPort{uart: uart},
		Flash:  log,
		EEPROM: area,
		ADC:    adc,
		Timer:  &secondTimer{},
		Mask:   &interruptMask{},
	})

	if err := logger.Run(context.Background()); err != nil {
		println("halted:", err.Error())
	}
	// Nothing left to do until reset.
	select {}
}

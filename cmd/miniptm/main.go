package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"periph.io/x/host/v3"

	"github.com/BeatGlow/miniptm"
	"github.com/BeatGlow/miniptm/pci"
)

const usage = `Usage: %s [flags] <command>

Commands:
  list                          list controllers and their pins
  scan                          scan every MiniPTM bus
  sfp <1-4>                     read an SFP module
  dpll <addr> [value]           read or write a DPLL register
  gpio [pin [in|out <0|1>]]     read or configure DPLL GPIOs
  eeprom read <addr> <n>        dump the DPLL EEPROM
  eeprom write <file.hex>       program the DPLL EEPROM
  i2c <addr> <hex> [n]          raw transaction: write bytes, read n

Flags:
`

func main() {
	configFlag := flag.String("config", "", "YAML configuration file")
	logLevelFlag := flag.String("log-level", "", "Log level (overrides configuration)")
	sysfsFlag := flag.String("sysfs", "", "PCI device directory (overrides configuration)")
	busFlag := flag.String("bus", "", "I²C bus name or number (default: first MiniPTM bus)")
	simulateFlag := flag.Bool("simulate", false, "Use a simulated controller without I²C targets instead of PCI")
	pciIDsFlag := flag.String("pci-ids", "", "pci.ids database (default: system locations)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	config := new(miniptm.Config)
	*config = miniptm.DefaultConfig
	if *configFlag != "" {
		var err error
		if config, err = miniptm.LoadConfig(*configFlag); err != nil {
			fatal(err)
		}
	}
	if *logLevelFlag != "" {
		config.LogLevel = *logLevelFlag
	}
	if *sysfsFlag != "" {
		config.Sysfs = *sysfsFlag
	}

	level, err := config.Level()
	if err != nil {
		fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var h miniptm.Host
	if *simulateFlag {
		h = &miniptm.SimHost{Devices: []*miniptm.SimDevice{
			miniptm.NewSimDevice("0000:01:00.0", miniptm.DefaultAllowList[0]),
		}}
	} else {
		sh := miniptm.NewSysfsHost(config.Sysfs)
		sh.Logger = logger
		h = sh
	}

	managerConfig, err := config.ManagerConfig(logger)
	if err != nil {
		fatal(err)
	}
	m := miniptm.NewManager(h, managerConfig)
	if err = miniptm.RegisterDriver(m); err != nil {
		fatal(err)
	}
	defer func() {
		if err := m.Stop(); err != nil {
			logger.Error("teardown incomplete", "error", err)
		}
	}()

	state, err := host.Init()
	if err != nil {
		fatal(err)
	}
	for _, f := range state.Failed {
		logger.Debug("driver failed", "driver", f.D, "error", f.Err)
	}

	names, err := pci.LoadNames(*pciIDsFlag)
	if err != nil {
		logger.Debug("no PCI names", "error", err)
	}
	c := &cli{
		m:      m,
		id:     managerConfig.ID,
		names:  names,
		logger: logger,
		bus:    *busFlag,
	}

	if err = c.run(flag.Args()); err != nil {
		logger.Error("command failed", "command", flag.Arg(0), "error", err)
		if err := m.Stop(); err != nil {
			logger.Error("teardown incomplete", "error", err)
		}
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}

package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/BeatGlow/miniptm"
	"github.com/BeatGlow/miniptm/board"
	"github.com/BeatGlow/miniptm/conn"
	"github.com/BeatGlow/miniptm/pci"
)

type cli struct {
	m      *miniptm.Manager
	id     pci.ID
	names  *pci.Names
	logger *slog.Logger
	bus    string
}

func (c *cli) run(args []string) error {
	switch cmd := args[0]; cmd {
	case "list":
		return c.list()

	case "scan":
		names := conn.FindBuses(miniptm.AdapterName)
		if len(names) == 0 {
			return fmt.Errorf("no %s registered", miniptm.AdapterName)
		}
		for _, name := range names {
			if err := scan(name); err != nil {
				return err
			}
		}
		return nil

	case "sfp":
		if len(args) != 2 {
			return fmt.Errorf("usage: sfp <1-4>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return c.withBoard(func(b *board.Board) error {
			s, err := b.ReadSFP(n)
			if err != nil {
				return err
			}
			fmt.Println(s)
			if s.Diag == nil {
				fmt.Println("  no diagnostics")
				return nil
			}
			fmt.Printf("  temperature: %.2f °C\n", s.Diag.Temperature)
			fmt.Printf("  transmit power: %.2f dBm\n", s.Diag.TxPower)
			fmt.Printf("  receive power: %.2f dBm\n", s.Diag.RxPower)
			fmt.Printf("  control: %#02x\n", s.Diag.Control)
			return nil
		})

	case "dpll":
		if len(args) != 2 && len(args) != 3 {
			return fmt.Errorf("usage: dpll <addr> [value]")
		}
		addr, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return err
		}
		return c.withBoard(func(b *board.Board) error {
			if len(args) == 3 {
				v, err := strconv.ParseUint(args[2], 0, 8)
				if err != nil {
					return err
				}
				return b.WriteReg(uint16(addr), byte(v))
			}
			v, err := b.ReadReg(uint16(addr))
			if err != nil {
				return err
			}
			fmt.Printf("%#04x = %#02x\n", addr, v)
			return nil
		})

	case "gpio":
		return c.gpio(args[1:])

	case "eeprom":
		return c.eeprom(args[1:])

	case "i2c":
		return c.raw(args[1:])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) list() error {
	devices := c.m.Devices()
	if len(devices) == 0 {
		return fmt.Errorf("no MiniPTM controller active")
	}
	for _, d := range devices {
		fmt.Printf("%s: %s, %s, bus %d (%s)\n", d, c.names.Describe(c.id), d.State(), d.BusNumber(), d.Adapter())
		for _, p := range d.Chip().Pins() {
			fmt.Printf("  %-24s gpio %-4d %s\n", p.Name(), p.Number(), p.Function())
		}
	}
	return nil
}

func (c *cli) gpio(args []string) error {
	if len(args) == 0 {
		return c.withBoard(func(b *board.Board) error {
			for pin := range board.NumGPIO {
				if err := printGPIO(b, pin); err != nil {
					return err
				}
			}
			return nil
		})
	}

	pin, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	switch {
	case len(args) == 1:
		return c.withBoard(func(b *board.Board) error {
			return printGPIO(b, pin)
		})
	case len(args) == 2 && args[1] == "in":
		return c.withBoard(func(b *board.Board) error {
			return b.ConfigureGPIO(pin, board.GPIOInput, false)
		})
	case len(args) == 3 && args[1] == "out":
		level, err := strconv.ParseBool(args[2])
		if err != nil {
			return err
		}
		return c.withBoard(func(b *board.Board) error {
			return b.ConfigureGPIO(pin, board.GPIOOutput, level)
		})
	default:
		return fmt.Errorf("usage: gpio [pin [in|out <0|1>]]")
	}
}

func printGPIO(b *board.Board, pin int) error {
	mode, level, err := b.ReadGPIO(pin)
	if err != nil {
		return err
	}
	l := 0
	if level {
		l = 1
	}
	fmt.Printf("GPIO%-2d %-8s %d\n", pin, mode, l)
	return nil
}

func (c *cli) eeprom(args []string) error {
	switch {
	case len(args) == 3 && args[0] == "read":
		addr, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		return c.withBoard(func(b *board.Board) error {
			data, err := b.ReadEEPROM(uint32(addr), n)
			if err != nil {
				return err
			}
			fmt.Print(hex.Dump(data))
			return nil
		})

	case len(args) == 2 && args[0] == "write":
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		segs, err := board.ParseHex(f)
		f.Close()
		if err != nil {
			return err
		}
		return c.withBoard(func(b *board.Board) error {
			if err := b.ProgramEEPROM(segs); err != nil {
				return err
			}
			c.logger.Info("EEPROM programmed", "file", args[1], "segments", len(segs))
			return nil
		})

	default:
		return fmt.Errorf("usage: eeprom read <addr> <n> | eeprom write <file.hex>")
	}
}

// raw runs a single transaction against one target.
func (c *cli) raw(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("usage: i2c <addr> <hex> [n]")
	}
	addr, err := strconv.ParseUint(args[0], 0, 7)
	if err != nil {
		return err
	}
	w, err := hex.DecodeString(args[1])
	if err != nil {
		return err
	}
	n := 0
	if len(args) == 3 {
		if n, err = strconv.Atoi(args[2]); err != nil {
			return err
		}
	}

	name, err := c.busName()
	if err != nil {
		return err
	}
	dev, err := conn.OpenI2C(name, uint16(addr))
	if err != nil {
		return err
	}
	defer dev.Close()

	r := make([]byte, n)
	switch {
	case n == 0:
		_, err = dev.Write(w)
	case len(w) == 0:
		_, err = dev.Read(r)
	default:
		err = dev.Tx(w, r)
	}
	if err != nil {
		return fmt.Errorf("%s %#02x: %w", dev, addr, err)
	}
	if n > 0 {
		fmt.Print(hex.Dump(r))
	}
	return nil
}

func (c *cli) busName() (string, error) {
	if c.bus != "" {
		return c.bus, nil
	}
	names := conn.FindBuses(miniptm.AdapterName)
	if len(names) == 0 {
		return "", fmt.Errorf("no %s registered", miniptm.AdapterName)
	}
	return names[0], nil
}

func scan(name string) error {
	dev, err := conn.OpenI2C(name, board.MuxAddr)
	if err != nil {
		return err
	}
	defer dev.Close()

	fmt.Printf("%s:", dev)
	for _, addr := range conn.Scan(dev.Bus()) {
		fmt.Printf(" %#02x", addr)
	}
	fmt.Println()
	return nil
}

func (c *cli) withBoard(f func(*board.Board) error) error {
	name, err := c.busName()
	if err != nil {
		return err
	}
	dev, err := conn.OpenI2C(name, board.MuxAddr)
	if err != nil {
		return err
	}
	defer dev.Close()

	return f(board.New(dev.Bus(), c.logger))
}

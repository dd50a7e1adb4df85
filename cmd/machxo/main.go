// Command machxo programs Lattice MachXO2/MachXO3 FPGAs through their
// I²C or SPI sysCONFIG port.
//
// Usage:
//
//	machxo --bus /dev/i2c-1 id
//	machxo --bus 1 program impl1/design.jed
//	machxo --config board.yaml erase config-flash ufm
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-machxo/isp"
	"github.com/moffa90/go-machxo/protocol"
	"github.com/moffa90/go-machxo/transport"
)

// options holds the global flags after the profile is merged in.
type options struct {
	config      string
	bus         string
	dev         string
	spi         string
	spiHz       int64
	ftdi        bool
	addr        uint16
	timeout     time.Duration
	transparent bool
	erase       []string
}

func main() {
	root := newRootCmd()
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	err := root.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:          "machxo",
		Short:        "Program Lattice MachXO2/MachXO3 FPGAs",
		Long:         `Program Lattice MachXO2/MachXO3 FPGAs from JED or HEX files over the I²C or SPI sysCONFIG port`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.config == "" {
				return nil
			}
			p, err := loadProfile(o.config)
			if err != nil {
				return err
			}
			return p.apply(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.config, "config", "", "YAML board profile, e.g. board.yaml")
	pf.StringVarP(&o.bus, "bus", "b", "", "periph.io I²C bus name, e.g. /dev/i2c-1 or 1 (default: first bus)")
	pf.StringVar(&o.dev, "dev", "", "Linux I²C character device driven directly, e.g. /dev/i2c-1")
	pf.StringVar(&o.spi, "spi", "", "SPI port instead of I²C, e.g. /dev/spidev0.0")
	pf.Int64Var(&o.spiHz, "spi-hz", int64(transport.DefaultSPIFrequency/physic.Hertz), "SPI clock in Hz")
	pf.BoolVar(&o.ftdi, "ftdi", false, "Use an FT232H/FT2232H USB adapter")
	pf.Uint16VarP(&o.addr, "addr", "a", protocol.DefaultAddress, "I²C address of the configuration port")
	pf.DurationVarP(&o.timeout, "timeout", "t", time.Minute, "Bound on bus acquisition and each busy wait (0 waits forever)")

	root.AddCommand(
		newIDCmd(o),
		newStatusCmd(o),
		newFeatureRowCmd(o),
		newEraseCmd(o),
		newProgramCmd(o),
		newRefreshCmd(o),
		newWakeupCmd(o),
	)
	return root
}

// openBus opens the transport selected by the flags.
func (o *options) openBus() (isp.Bus, io.Closer, error) {
	switch {
	case o.spi != "" && o.ftdi:
		b, err := transport.OpenFTDISPI(physic.Frequency(o.spiHz) * physic.Hertz)
		return b, b, err
	case o.spi != "":
		b, err := transport.OpenSPI(o.spi, physic.Frequency(o.spiHz)*physic.Hertz)
		return b, b, err
	case o.ftdi:
		b, err := transport.OpenFTDII2C()
		return b, b, err
	case o.dev != "":
		b, err := transport.OpenDev(o.dev)
		return b, b, err
	default:
		b, err := transport.OpenI2C(o.bus)
		return b, b, err
	}
}

// run opens the bus and a Programmer, calls fn and releases both.
func (o *options) run(fn func(ctx context.Context, prog *isp.Programmer) error, opts ...isp.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus, closer, err := o.openBus()
	if err != nil {
		return err
	}
	shared := transport.NewShared(bus)
	defer closer.Close()

	base := []isp.Option{
		isp.WithAddress(o.addr),
		isp.WithLogger(glogLogger{}),
		isp.WithBusyTimeout(o.timeout),
		isp.WithLockTimeout(o.timeout),
	}
	prog, err := isp.Open(ctx, shared, append(base, opts...)...)
	if err != nil {
		return err
	}
	defer prog.Close()

	return fn(ctx, prog)
}

// eraseMask parses region names, defaulting to the configuration flash.
func eraseMask(regions []string) (protocol.EraseMask, error) {
	if len(regions) == 0 {
		return protocol.EraseConfigFlash, nil
	}
	var mask protocol.EraseMask
	for _, r := range regions {
		for _, name := range strings.Split(r, ",") {
			m, err := protocol.ParseEraseRegion(strings.TrimSpace(name))
			if err != nil {
				return 0, err
			}
			mask |= m
		}
	}
	return mask, nil
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

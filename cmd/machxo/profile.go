package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// profile is a YAML board description. Flags given on the command line
// take precedence over its values.
//
//	bus: /dev/i2c-1
//	address: 0x40
//	timeout: 30s
//	transparent: true
//	erase: [config-flash, ufm]
type profile struct {
	Bus         string        `yaml:"bus"`
	Dev         string        `yaml:"dev"`
	SPI         string        `yaml:"spi"`
	SPIHz       int64         `yaml:"spi_hz"`
	FTDI        bool          `yaml:"ftdi"`
	Address     uint16        `yaml:"address"`
	Timeout     time.Duration `yaml:"timeout"`
	Transparent bool          `yaml:"transparent"`
	Erase       []string      `yaml:"erase"`
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return parseProfile(data)
}

func parseProfile(data []byte) (*profile, error) {
	p := &profile{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return p, nil
}

// apply copies profile values into o for every flag not set explicitly.
func (p *profile) apply(cmd *cobra.Command, o *options) error {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if p.Bus != "" && !changed("bus") {
		o.bus = p.Bus
	}
	if p.Dev != "" && !changed("dev") {
		o.dev = p.Dev
	}
	if p.SPI != "" && !changed("spi") {
		o.spi = p.SPI
	}
	if p.SPIHz != 0 && !changed("spi-hz") {
		o.spiHz = p.SPIHz
	}
	if p.FTDI && !changed("ftdi") {
		o.ftdi = true
	}
	if p.Address != 0 && !changed("addr") {
		if p.Address > 0x7F {
			return fmt.Errorf("profile: address 0x%X is not a 7-bit address", p.Address)
		}
		o.addr = p.Address
	}
	if p.Timeout != 0 && !changed("timeout") {
		o.timeout = p.Timeout
	}
	if p.Transparent && !changed("transparent") {
		o.transparent = true
	}
	if len(p.Erase) > 0 && !changed("erase") {
		o.erase = p.Erase
	}
	return nil
}

// Package config parses and validates the YAML file that configures
// a vrrp serve run: the set of virtual routers to bring up and the
// interface, addresses, and mode of each.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tokuhirom/go-vrrp/pkg/vrrp"
)

// Config is a parsed and validated set of virtual router instances.
type Config struct {
	Instances []InstanceConfig `yaml:"instances"`
}

// InstanceConfig describes one (VRID, interface) virtual router.
type InstanceConfig struct {
	Interface       string   `yaml:"interface"`
	VRID            uint8    `yaml:"vrid"`
	VirtualAddrs    []string `yaml:"virtual_addresses"`
	AdvertInterval  float64  `yaml:"advertisement_interval_seconds"`
	Owner           bool     `yaml:"owner"`
	PrimaryIP       string   `yaml:"primary_ip"`
	Priority        uint8    `yaml:"priority"`
	Preempt         *bool    `yaml:"preempt"`
	AcceptMode      *bool    `yaml:"accept_mode"`
}

// Load reads and validates a configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(cfg.Instances) == 0 {
		return nil, fmt.Errorf("config: no instances defined")
	}

	var errs []error
	for i, inst := range cfg.Instances {
		if err := inst.validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: instance #%d (vrid %d): %w", i+1, inst.VRID, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &cfg, nil
}

func (c InstanceConfig) validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if len(c.VirtualAddrs) == 0 {
		return vrrp.ErrEmptyVirtualAddresses
	}
	for _, addr := range c.VirtualAddrs {
		if net.ParseIP(addr).To4() == nil {
			return fmt.Errorf("%s: %w", addr, vrrp.ErrNotIPv4)
		}
	}
	if !c.Owner {
		if c.PrimaryIP == "" {
			return fmt.Errorf("primary_ip is required when owner is false")
		}
		if net.ParseIP(c.PrimaryIP) == nil {
			return fmt.Errorf("primary_ip %q is not a valid IP", c.PrimaryIP)
		}
	}
	_, err := c.Parameters()
	return err
}

// Parameters builds the vrrp.Parameters this instance describes.
func (c InstanceConfig) Parameters() (*vrrp.Parameters, error) {
	vrid, err := vrrp.NewVRID(c.VRID)
	if err != nil {
		return nil, err
	}

	ips := make([]net.IP, len(c.VirtualAddrs))
	for i, addr := range c.VirtualAddrs {
		ips[i] = net.ParseIP(addr)
	}
	addresses, err := vrrp.NewVirtualAddresses(ips)
	if err != nil {
		return nil, err
	}

	interval := vrrp.IntervalFromSeconds(uint32(c.AdvertInterval))
	if interval == 0 {
		interval = vrrp.IntervalFromSeconds(1)
	}

	mode := vrrp.OwnerMode()
	if !c.Owner {
		priority := c.Priority
		if priority == 0 {
			priority = uint8(vrrp.DefaultPriority)
		}
		mode = vrrp.NewBackupMode(
			net.ParseIP(c.PrimaryIP),
			vrrp.Priority(priority),
			boolOr(c.Preempt, true),
			boolOr(c.AcceptMode, false),
		)
	}

	return vrrp.NewParameters(vrid, addresses, interval, mode)
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

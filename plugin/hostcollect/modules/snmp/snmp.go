// SPDX-License-Identifier: GPL-3.0-or-later

package snmp

import (
	"context"
	"errors"
	"fmt"

	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"

	"github.com/gosnmp/gosnmp"
)

const (
	defaultCommunity = "public"
	defaultPort      = 161
	defaultRetries   = 1
	defaultMaxOIDs   = 60

	readGroup = "snmp"
)

func init() {
	module.Register("snmp", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "polls OIDs from SNMP agents",
	})
}

func New() *SNMP {
	return &SNMP{
		newSnmpClient: gosnmp.NewHandler,
	}
}

type (
	Config struct {
		Data  []DataConfig `yaml:"data" json:"data"`
		Hosts []HostConfig `yaml:"hosts" json:"hosts"`
	}
	// DataConfig maps a list of OIDs onto the sources of a data set.
	DataConfig struct {
		Name         string   `yaml:"name" json:"name"`
		Type         string   `yaml:"type" json:"type"`
		TypeInstance string   `yaml:"type_instance,omitempty" json:"type_instance"`
		Values       []string `yaml:"values" json:"values"`
		Scale        float64  `yaml:"scale,omitempty" json:"scale"`
		Shift        float64  `yaml:"shift,omitempty" json:"shift"`
	}
	HostConfig struct {
		Name      string           `yaml:"name" json:"name"`
		Address   string           `yaml:"address" json:"address"`
		Port      int              `yaml:"port,omitempty" json:"port"`
		Community string           `yaml:"community,omitempty" json:"community"`
		Version   string           `yaml:"version,omitempty" json:"version"`
		User      User             `yaml:"user,omitempty" json:"user"`
		Retries   int              `yaml:"retries,omitempty" json:"retries"`
		Timeout   confopt.Duration `yaml:"timeout,omitempty" json:"timeout"`
		Interval  confopt.Duration `yaml:"interval,omitempty" json:"interval"`
		MaxOIDs   int              `yaml:"max_request_size,omitempty" json:"max_request_size"`
		Collect   []string         `yaml:"collect" json:"collect"`
	}
	User struct {
		Name          string `yaml:"name,omitempty" json:"name"`
		SecurityLevel string `yaml:"level,omitempty" json:"level"`
		AuthProto     string `yaml:"auth_proto,omitempty" json:"auth_proto"`
		AuthKey       string `yaml:"auth_key,omitempty" json:"auth_key"`
		PrivProto     string `yaml:"priv_proto,omitempty" json:"priv_proto"`
		PrivKey       string `yaml:"priv_key,omitempty" json:"priv_key"`
	}
)

type SNMP struct {
	module.Base
	Config `yaml:",inline" json:""`

	newSnmpClient func() gosnmp.Handler
}

func (s *SNMP) Configuration() any {
	return s.Config
}

// Register adds one read function per host, all in the "snmp" group. Each host
// carries its client as user data; the client is closed when the read is removed,
// at the latest on shutdown.
func (s *SNMP) Register(ctx context.Context, host module.Host) error {
	if err := s.validateConfig(); err != nil {
		return fmt.Errorf("config validation: %v", err)
	}

	data := make(map[string]*DataConfig, len(s.Data))
	for i := range s.Data {
		d := &s.Data[i]
		ds, err := host.TypesDB().Get(d.Type)
		if err != nil {
			return fmt.Errorf("data '%s': %w", d.Name, err)
		}
		if len(ds.Sources) != len(d.Values) {
			return fmt.Errorf("data '%s': type '%s' has %d sources, got %d OIDs", d.Name, d.Type, len(ds.Sources), len(d.Values))
		}
		if d.Scale == 0 {
			d.Scale = 1
		}
		data[d.Name] = d
	}

	var errs []error
	var registered int
	for _, hc := range s.Hosts {
		hd, err := s.newHostData(hc, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("host '%s': %v", hc.Name, err))
			continue
		}
		ud := &engine.UserData{Data: hd, Free: freeHostData}
		if err := host.RegisterComplexRead(ctx, readGroup, "snmp-"+hc.Name, s.readHost(host), hc.Interval.Duration(), ud); err != nil {
			errs = append(errs, err)
			continue
		}
		registered++
	}
	if registered > 0 {
		errs = append(errs, host.RegisterShutdown(ctx, "snmp", func(context.Context) error {
			return releaseHosts(host)
		}))
	}
	return errors.Join(errs...)
}

// releaseHosts drops the host reads so the clients are closed once reading has stopped.
func releaseHosts(host module.Host) error {
	if err := host.UnregisterReadGroup(readGroup); err != nil && !errors.Is(err, engine.ErrNotFound) {
		return err
	}
	return nil
}

func (s *SNMP) validateConfig() error {
	if len(s.Hosts) == 0 {
		return errors.New("no hosts configured")
	}
	names := make(map[string]bool, len(s.Data))
	for _, d := range s.Data {
		if d.Name == "" {
			return errors.New("data name is required")
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate data '%s'", d.Name)
		}
		names[d.Name] = true
	}
	for _, h := range s.Hosts {
		if h.Name == "" || h.Address == "" {
			return errors.New("host name and address are required")
		}
		for _, c := range h.Collect {
			if !names[c] {
				return fmt.Errorf("host '%s': unknown data '%s'", h.Name, c)
			}
		}
	}
	return nil
}

func freeHostData(v any) {
	if hd, ok := v.(*hostData); ok {
		hd.close()
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later

package snmp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/gosnmp/gosnmp"
)

type hostData struct {
	name    string
	client  gosnmp.Handler
	maxOIDs int
	data    []*DataConfig
	log     *logger.Logger

	mu        sync.Mutex
	connected bool
}

func (hd *hostData) connect() error {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	if hd.connected {
		return nil
	}
	if err := hd.client.Connect(); err != nil {
		return fmt.Errorf("SNMP client connect: %v", err)
	}
	hd.connected = true
	return nil
}

// disconnect drops the connection so the next read reconnects.
func (hd *hostData) disconnect() {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	if hd.connected {
		_ = hd.client.Close()
		hd.connected = false
	}
}

func (hd *hostData) close() { hd.disconnect() }

func (s *SNMP) readHost(host module.Host) engine.ComplexReadFunc {
	return func(ctx context.Context, ud any) error {
		hd, ok := ud.(*hostData)
		if !ok {
			return fmt.Errorf("unexpected user data %T", ud)
		}
		if err := hd.connect(); err != nil {
			return err
		}

		var errs []error
		for _, d := range hd.data {
			vl, err := hd.collectData(host, d)
			if err != nil {
				errs = append(errs, fmt.Errorf("data '%s': %v", d.Name, err))
				continue
			}
			if err := host.Dispatch(ctx, vl); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) == len(hd.data) && len(errs) > 0 {
			hd.disconnect()
		}
		return errors.Join(errs...)
	}
}

func (hd *hostData) collectData(host module.Host, d *DataConfig) (*sample.ValueList, error) {
	ds, err := host.TypesDB().Get(d.Type)
	if err != nil {
		return nil, err
	}

	vars, err := hd.get(d.Values)
	if err != nil {
		return nil, err
	}

	vl := &sample.ValueList{
		Host:         hd.name,
		Plugin:       "snmp",
		Type:         d.Type,
		TypeInstance: d.TypeInstance,
		Values:       make([]sample.Value, len(ds.Sources)),
	}
	for i, src := range ds.Sources {
		v, ok := vars[d.Values[i]]
		if !ok {
			return nil, fmt.Errorf("no value for OID '%s'", d.Values[i])
		}
		val, err := convertPDU(v, src.Kind, d.Scale, d.Shift)
		if err != nil {
			return nil, fmt.Errorf("OID '%s': %v", d.Values[i], err)
		}
		vl.Values[i] = val
	}
	return vl, nil
}

func (hd *hostData) get(oids []string) (map[string]gosnmp.SnmpPDU, error) {
	vars := make(map[string]gosnmp.SnmpPDU, len(oids))

	for i, end := 0, 0; i < len(oids); i += hd.maxOIDs {
		if end = i + hd.maxOIDs; end > len(oids) {
			end = len(oids)
		}

		chunk := oids[i:end]
		resp, err := hd.client.Get(chunk)
		if err != nil {
			return nil, fmt.Errorf("cannot get SNMP data: %v", err)
		}

		for j, oid := range chunk {
			if j >= len(resp.Variables) {
				continue
			}
			v := resp.Variables[j]
			switch v.Type {
			case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
				hd.log.Debugf("host '%s': skipping OID '%s' (type '%s')", hd.name, oid, v.Type)
				continue
			}
			vars[oid] = v
		}
	}
	return vars, nil
}

func convertPDU(v gosnmp.SnmpPDU, kind sample.DSType, scale, shift float64) (sample.Value, error) {
	var f float64
	var n uint64
	isFloat := false

	switch v.Type {
	case gosnmp.Boolean,
		gosnmp.Counter32,
		gosnmp.Counter64,
		gosnmp.Gauge32,
		gosnmp.TimeTicks,
		gosnmp.Uinteger32,
		gosnmp.Integer:
		bi := gosnmp.ToBigInt(v.Value)
		n, f = bi.Uint64(), float64(bi.Int64())
		if bi.Sign() >= 0 {
			f = float64(n)
		}
	case gosnmp.OpaqueFloat, gosnmp.OpaqueDouble:
		switch x := v.Value.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		}
		isFloat = true
	case gosnmp.OctetString:
		b, _ := v.Value.([]byte)
		x, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil {
			return sample.Value{}, fmt.Errorf("not a number: '%s'", b)
		}
		f, isFloat = x, true
	default:
		return sample.Value{}, fmt.Errorf("unsupported type '%s'", v.Type)
	}

	switch kind {
	case sample.Gauge:
		return sample.GaugeValue(f*scale + shift), nil
	case sample.Derive:
		return sample.DeriveValue(int64(f)), nil
	default:
		if isFloat {
			n = uint64(f)
		}
		if kind == sample.Absolute {
			return sample.AbsoluteValue(n), nil
		}
		return sample.CounterValue(n), nil
	}
}

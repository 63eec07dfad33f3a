// SPDX-License-Identifier: GPL-3.0-or-later

package write_mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"go.mongodb.org/mongo-driver/bson"
)

func init() {
	module.Register("write_mongodb", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "stores samples as MongoDB documents, one collection per plugin",
	})
}

func New() *WriteMongoDB {
	return &WriteMongoDB{
		Config: Config{
			URI:      "mongodb://localhost:27017",
			Database: "hostcollect",
			Timeout:  confopt.Duration(time.Second),
		},
		newConn: func() mongoConn { return &mongoClient{} },
	}
}

type Config struct {
	URI        string           `yaml:"uri" json:"uri"`
	Database   string           `yaml:"database" json:"database"`
	Timeout    confopt.Duration `yaml:"timeout" json:"timeout"`
	StoreRates bool             `yaml:"store_rates" json:"store_rates"`
}

type WriteMongoDB struct {
	module.Base
	Config `yaml:",inline" json:""`

	newConn func() mongoConn
}

func (w *WriteMongoDB) Configuration() any {
	return w.Config
}

func (w *WriteMongoDB) Register(ctx context.Context, host module.Host) error {
	if w.URI == "" {
		return errors.New("'uri' not set")
	}
	if w.Database == "" {
		return errors.New("'database' not set")
	}

	wr := &writer{Logger: w.Logger, conn: w.newConn(), cfg: w.Config}
	if w.StoreRates {
		wr.rates = host
	}
	ud := &engine.UserData{Data: wr, Free: func(v any) { v.(*writer).close() }}
	return host.RegisterWrite(ctx, "write_mongodb", writeValues, ud)
}

type rateSource interface {
	Rates(vl *sample.ValueList) ([]float64, error)
}

type writer struct {
	*logger.Logger

	mu        sync.Mutex
	conn      mongoConn
	cfg       Config
	connected bool
	rates     rateSource
}

func writeValues(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error {
	wr, ok := ud.(*writer)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	return wr.write(ctx, ds, vl)
}

func (wr *writer) write(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) error {
	doc, err := wr.document(ds, vl)
	if err != nil {
		return err
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	if !wr.connected {
		if err := wr.conn.initClient(wr.cfg.URI, wr.cfg.Database, wr.cfg.Timeout.Duration()); err != nil {
			return fmt.Errorf("connecting to '%s': %v", wr.cfg.URI, err)
		}
		wr.connected = true
	}

	if err := wr.conn.insert(ctx, vl.Plugin, doc); err != nil {
		// reconnect on the next write
		if cerr := wr.conn.close(); cerr != nil {
			wr.Debugf("closing connection: %v", cerr)
		}
		wr.connected = false
		return fmt.Errorf("insert into '%s': %v", vl.Plugin, err)
	}
	return nil
}

func (wr *writer) document(ds *sample.DataSet, vl *sample.ValueList) (bson.D, error) {
	if len(ds.Sources) != len(vl.Values) {
		return nil, fmt.Errorf("%s: data set has %d sources, got %d values", vl.Identifier(), len(ds.Sources), len(vl.Values))
	}

	var rates []float64
	if wr.rates != nil {
		var err error
		if rates, err = wr.rates.Rates(vl); err != nil {
			return nil, err
		}
	}

	values := make(bson.A, 0, len(ds.Sources))
	dstypes := make(bson.A, 0, len(ds.Sources))
	dsnames := make(bson.A, 0, len(ds.Sources))
	for i, src := range ds.Sources {
		dsnames = append(dsnames, src.Name)
		switch {
		case src.Kind == sample.Gauge:
			values = append(values, vl.Values[i].Gauge)
			dstypes = append(dstypes, "gauge")
			continue
		case rates != nil:
			values = append(values, rates[i])
			dstypes = append(dstypes, "gauge")
			continue
		case src.Kind == sample.Derive:
			values = append(values, vl.Values[i].Derive)
		case src.Kind == sample.Counter:
			values = append(values, int64(vl.Values[i].Counter))
		default:
			values = append(values, int64(vl.Values[i].Absolute))
		}
		dstypes = append(dstypes, lower(src.Kind))
	}

	return bson.D{
		{Key: "timestamp", Value: vl.Time.UTC()},
		{Key: "host", Value: vl.Host},
		{Key: "plugin", Value: vl.Plugin},
		{Key: "plugin_instance", Value: vl.PluginInstance},
		{Key: "type", Value: vl.Type},
		{Key: "type_instance", Value: vl.TypeInstance},
		{Key: "values", Value: values},
		{Key: "dstypes", Value: dstypes},
		{Key: "dsnames", Value: dsnames},
	}, nil
}

func lower(kind sample.DSType) string {
	switch kind {
	case sample.Counter:
		return "counter"
	case sample.Derive:
		return "derive"
	case sample.Absolute:
		return "absolute"
	default:
		return "gauge"
	}
}

func (wr *writer) close() {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if err := wr.conn.close(); err != nil {
		wr.Warningf("error on closing mongo client: %v", err)
	}
	wr.connected = false
}

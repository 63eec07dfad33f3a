// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

// Host is the daemon side of the plugin API. *engine.Engine implements it.
type Host interface {
	RegisterInit(ctx context.Context, name string, fn engine.InitFunc) error
	RegisterShutdown(ctx context.Context, name string, fn engine.ShutdownFunc) error
	RegisterRead(ctx context.Context, name string, fn engine.ReadFunc) error
	RegisterComplexRead(ctx context.Context, group, name string, fn engine.ComplexReadFunc, interval time.Duration, ud *engine.UserData) error
	UnregisterRead(name string) error
	UnregisterReadGroup(group string) error
	RegisterWrite(ctx context.Context, name string, fn engine.WriteFunc, ud *engine.UserData) error
	RegisterFlush(ctx context.Context, name string, fn engine.FlushFunc, ud *engine.UserData) error
	RegisterMissing(ctx context.Context, name string, fn engine.MissingFunc, ud *engine.UserData) error
	RegisterNotification(ctx context.Context, name string, fn engine.NotificationFunc, ud *engine.UserData) error
	RegisterLog(ctx context.Context, name string, fn engine.LogFunc, ud *engine.UserData) error
	RegisterMatch(name string, create filterchain.MatchCreator) error
	RegisterTarget(name string, create filterchain.TargetCreator) error

	Dispatch(ctx context.Context, vl *sample.ValueList) error
	DispatchMultiValue(ctx context.Context, tmpl *sample.ValueList, typ string, percentage bool, values map[string]float64) error
	DispatchNotification(ctx context.Context, n *sample.Notification) error
	Write(ctx context.Context, plugin string, ds *sample.DataSet, vl *sample.ValueList) error
	Flush(ctx context.Context, plugin string, timeout time.Duration, identifier string) error

	Rates(vl *sample.ValueList) ([]float64, error)

	Interval(ctx context.Context) time.Duration
	Hostname() string
	TypesDB() *sample.TypesDB
	NewLogger(plugin string) *logger.Logger
}

var _ Host = (*engine.Engine)(nil)

// Module is a plugin. Register is called once, with ctx carrying the plugin context,
// after the plugin configuration has been unmarshalled into the module.
type Module interface {
	Register(ctx context.Context, host Host) error

	GetBase() *Base

	Configuration() any
}

// Base is a helper struct. All modules should embed this struct.
type Base struct {
	*logger.Logger
}

func (b *Base) GetBase() *Base { return b }

type configurationProvider interface {
	Configuration() any
}

func TestConfigurationSerialize(t *testing.T, mod configurationProvider, cfgJSON, cfgYAML []byte) {
	t.Helper()
	tests := map[string]struct {
		config    []byte
		unmarshal func(in []byte, out any) (err error)
		marshal   func(in any) (out []byte, err error)
	}{
		"json": {config: cfgJSON, marshal: json.Marshal, unmarshal: json.Unmarshal},
		"yaml": {config: cfgYAML, marshal: yaml.Marshal, unmarshal: yaml.Unmarshal},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {

			require.NoError(t, test.unmarshal(test.config, mod), "unmarshal test->mod")
			bs, err := test.marshal(mod.Configuration())
			require.NoError(t, err, "marshal mod config")

			var want map[string]any
			var got map[string]any

			require.NoError(t, test.unmarshal(test.config, &want), "unmarshal test->map")
			require.NoError(t, test.unmarshal(bs, &got), "unmarshal mod->map")

			require.NotNil(t, want, "want map")
			require.NotNil(t, got, "got map")

			assert.Equal(t, want, got)
		})
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later

package target_notification

import (
	"context"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

type recordingNotifier struct {
	got []*sample.Notification
}

func (r *recordingNotifier) DispatchNotification(_ context.Context, n *sample.Notification) error {
	r.got = append(r.got, n)
	return nil
}

func TestTarget(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := map[string]struct {
		opts         string
		noEnv        bool
		wantErr      bool
		wantMsg      string
		wantSeverity sample.Severity
	}{
		"expanded message": {
			opts:         "message: 'load on %{host} is %{ds:shortterm}'\nseverity: warning",
			wantMsg:      "load on web1 is 3.5",
			wantSeverity: sample.SeverityWarning,
		},
		"plain message": {
			opts:         "message: down\nseverity: FAILURE",
			wantMsg:      "down",
			wantSeverity: sample.SeverityFailure,
		},
		"missing message": {
			opts:    "severity: okay",
			wantErr: true,
		},
		"missing severity": {
			opts:    "message: x",
			wantErr: true,
		},
		"unknown severity": {
			opts:    "message: x\nseverity: panic",
			wantErr: true,
		},
		"no notifier": {
			opts:    "message: x\nseverity: okay",
			noEnv:   true,
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var opts filterchain.Options
			require.NoError(t, yaml.Unmarshal([]byte(test.opts), &opts))

			rec := &recordingNotifier{}
			env := filterchain.Env{Notifier: rec}
			if test.noEnv {
				env = filterchain.Env{}
			}

			tgt, err := newTarget(env, opts)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ds := &sample.DataSet{Type: "load", Sources: []sample.DataSource{
				{Name: "shortterm", Kind: sample.Gauge},
				{Name: "midterm", Kind: sample.Gauge},
				{Name: "longterm", Kind: sample.Gauge},
			}}
			vl := &sample.ValueList{
				Host:   "web1",
				Plugin: "load",
				Type:   "load",
				Time:   now,
				Values: []sample.Value{{Gauge: 3.5}, {Gauge: 2}, {Gauge: 1}},
			}

			v, err := tgt.Invoke(context.Background(), ds, vl)
			require.NoError(t, err)
			assert.Equal(t, filterchain.Continue, v)

			require.Len(t, rec.got, 1)
			n := rec.got[0]
			assert.Equal(t, test.wantMsg, n.Message)
			assert.Equal(t, test.wantSeverity, n.Severity)
			assert.Equal(t, now, n.Time)
			assert.Equal(t, "web1", n.Host)
			assert.Equal(t, "load", n.Plugin)
			assert.Equal(t, "load", n.Type)
		})
	}
}

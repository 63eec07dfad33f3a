// SPDX-License-Identifier: GPL-3.0-or-later

package netdataapi

import (
	"io"
	"strconv"
)

// API writes the netdata external plugin text protocol.
// See: https://learn.netdata.cloud/docs/agent/plugins.d#the-output-of-the-plugin
type API struct {
	io.Writer
}

const quotes = "' '"

var (
	end     = []byte("END\n\n")
	newLine = []byte("\n")
)

// New creates a new API instance. Panics if the provided writer is nil.
func New(w io.Writer) *API {
	if w == nil {
		panic("writer cannot be nil")
	}
	return &API{w}
}

// CHART creates or updates a chart.
func (a *API) CHART(opts ChartOpts) {
	_, _ = a.Write([]byte("CHART " + "'" +
		opts.TypeID + "." + opts.ID + quotes +
		opts.Name + quotes +
		opts.Title + quotes +
		opts.Units + quotes +
		opts.Family + quotes +
		opts.Context + quotes +
		opts.ChartType + quotes +
		strconv.Itoa(opts.Priority) + quotes +
		strconv.Itoa(opts.UpdateEvery) + quotes +
		opts.Options + quotes +
		opts.Plugin + quotes +
		opts.Module + "'\n"))
}

// DIMENSION adds or updates a dimension of the most recently created chart.
func (a *API) DIMENSION(opts DimensionOpts) {
	_, _ = a.Write([]byte("DIMENSION '" +
		opts.ID + quotes +
		opts.Name + quotes +
		opts.Algorithm + quotes +
		strconv.Itoa(opts.Multiplier) + quotes +
		strconv.Itoa(opts.Divisor) + quotes +
		opts.Options + "'\n"))
}

// CLABEL adds a label to the most recently created chart.
func (a *API) CLABEL(key, value string, source int) {
	_, _ = a.Write([]byte("CLABEL '" +
		key + quotes +
		value + quotes +
		strconv.Itoa(source) + "'\n"))
}

// CLABELCOMMIT commits the labels added with CLABEL.
func (a *API) CLABELCOMMIT() {
	_, _ = a.Write([]byte("CLABEL_COMMIT\n"))
}

// BEGIN starts a data collection block for a chart.
func (a *API) BEGIN(typeID string, id string, usSince int64) {
	if usSince > 0 {
		_, _ = a.Write([]byte("BEGIN '" + typeID + "." + id + "' " + strconv.FormatInt(usSince, 10) + "\n"))
	} else {
		_, _ = a.Write([]byte("BEGIN '" + typeID + "." + id + "'\n"))
	}
}

// SET sets an integer dimension value.
func (a *API) SET(id string, value int64) {
	_, _ = a.Write([]byte("SET '" + id + "' = " + strconv.FormatInt(value, 10) + "\n"))
}

// SETFLOAT sets a floating point dimension value.
func (a *API) SETFLOAT(id string, value float64) {
	_, _ = a.Write([]byte("SET '" + id + "' = " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

// SETEMPTY marks a dimension as not collected in this block.
func (a *API) SETEMPTY(id string) {
	_, _ = a.Write([]byte("SET '" + id + "' = \n"))
}

// END completes a data collection block.
func (a *API) END() {
	_, _ = a.Write(end)
}

// DISABLE asks netdata not to restart the plugin.
func (a *API) DISABLE() {
	_, _ = a.Write([]byte("DISABLE\n"))
}

// EMPTYLINE writes an empty line.
func (a *API) EMPTYLINE() error {
	_, err := a.Write(newLine)
	return err
}

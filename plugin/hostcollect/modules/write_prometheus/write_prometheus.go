// SPDX-License-Identifier: GPL-3.0-or-later

package write_prometheus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	module.Register("write_prometheus", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "exposes the latest samples on a Prometheus scrape endpoint",
	})
}

func New() *WritePrometheus {
	return &WritePrometheus{
		Config: Config{
			Listen:         ":9103",
			Path:           "/metrics",
			StalenessDelta: confopt.Duration(5 * time.Minute),
		},
	}
}

type Config struct {
	Listen string `yaml:"listen" json:"listen"`
	Path   string `yaml:"path" json:"path"`
	// StalenessDelta is how long a series is exported after its last update.
	StalenessDelta confopt.Duration `yaml:"staleness_delta" json:"staleness_delta"`
}

type WritePrometheus struct {
	module.Base
	Config `yaml:",inline" json:""`

	exporter *exporter

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
	done <-chan struct{}
}

func (w *WritePrometheus) Configuration() any {
	return w.Config
}

func (w *WritePrometheus) Register(ctx context.Context, host module.Host) error {
	if w.Listen == "" {
		return errors.New("'listen' can't be empty")
	}
	if w.Path == "" {
		w.Path = "/metrics"
	}
	w.exporter = newExporter(w.StalenessDelta.Duration())

	ud := &engine.UserData{Data: w.exporter}
	return errors.Join(
		host.RegisterInit(ctx, "write_prometheus", w.start),
		host.RegisterWrite(ctx, "write_prometheus", writeValues, ud),
		host.RegisterMissing(ctx, "write_prometheus", dropValues, ud),
		host.RegisterShutdown(ctx, "write_prometheus", w.stop),
	)
}

func writeValues(_ context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error {
	ex, ok := ud.(*exporter)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	return ex.update(ds, vl)
}

// dropValues stops exporting a value list the daemon no longer receives.
func dropValues(_ context.Context, vl *sample.ValueList, ud any) error {
	ex, ok := ud.(*exporter)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	ex.remove(vl)
	return nil
}

func (w *WritePrometheus) start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(w.exporter); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", w.Listen)
	if err != nil {
		return fmt.Errorf("listen on '%s': %v", w.Listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle(w.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: promLogger{w}}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	w.mu.Lock()
	w.srv, w.addr = srv, ln.Addr()
	w.mu.Unlock()

	w.Infof("serving metrics on http://%s%s", ln.Addr(), w.Path)

	w.done = pctx.Go(ctx, func(context.Context) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.Errorf("metrics server: %v", err)
		}
	})
	return nil
}

func (w *WritePrometheus) stop(ctx context.Context) error {
	w.mu.Lock()
	srv := w.srv
	w.srv = nil
	w.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-w.done
	return err
}

func (w *WritePrometheus) listenAddr() net.Addr {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addr
}

type promLogger struct{ w *WritePrometheus }

func (l promLogger) Println(v ...any) { l.w.Error(v...) }

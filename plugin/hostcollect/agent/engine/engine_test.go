// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu   sync.Mutex
	vls  []*sample.ValueList
	ctxs []pctx.Context
	err  error
}

func (w *recordingWriter) write(ctx context.Context, _ *sample.DataSet, vl *sample.ValueList, _ any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vls = append(w.vls, vl.Clone())
	w.ctxs = append(w.ctxs, pctx.From(ctx))
	return w.err
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.vls)
}

func (w *recordingWriter) last() *sample.ValueList {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.vls) == 0 {
		return nil
	}
	return w.vls[len(w.vls)-1]
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	if cfg.Hostname == "" {
		cfg.Hostname = "testhost"
	}
	e, err := New(cfg)
	require.NoError(t, err)
	e.Mute()
	t.Cleanup(func() {
		e.Stop(context.Background())
		e.Close()
	})
	return e
}

func pluginCtx(plugin string, interval time.Duration) context.Context {
	return pctx.With(context.Background(), pctx.Context{Plugin: plugin, Interval: interval})
}

func gaugeVL(v float64) *sample.ValueList {
	return &sample.ValueList{
		Plugin: "test",
		Type:   "gauge",
		Values: []sample.Value{sample.GaugeValue(v)},
	}
}

func TestEngine_RegisterCallbacks(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := pluginCtx("p", 0)

	var freed []any
	ud := func(v string) *UserData {
		return &UserData{Data: v, Free: func(d any) { freed = append(freed, d) }}
	}
	noop := func(context.Context, *sample.DataSet, *sample.ValueList, any) error { return nil }

	assert.ErrorIs(t, e.RegisterWrite(ctx, "", noop, nil), ErrInvalidName)
	assert.ErrorIs(t, e.RegisterRead(ctx, "", func(context.Context) error { return nil }), ErrInvalidName)

	require.NoError(t, e.RegisterWrite(ctx, "a", noop, ud("a1")))
	require.NoError(t, e.RegisterWrite(ctx, "b", noop, ud("b1")))
	require.NoError(t, e.RegisterWrite(ctx, "a", noop, ud("a2")))

	assert.Equal(t, []string{"a", "b"}, e.WriteNames())
	assert.Equal(t, []any{"a1"}, freed)

	assert.ErrorIs(t, e.UnregisterWrite("nope"), ErrNotFound)
	require.NoError(t, e.UnregisterWrite("a"))
	assert.Equal(t, []any{"a1", "a2"}, freed)
	assert.Equal(t, []string{"b"}, e.WriteNames())

	assert.ErrorIs(t, e.UnregisterRead("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterReadGroup("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterFlush("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterMissing("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterNotification("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterLog("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterInit("nope"), ErrNotFound)
	assert.ErrorIs(t, e.UnregisterShutdown("nope"), ErrNotFound)
}

func TestEngine_ReadIntervalFromContext(t *testing.T) {
	e := newTestEngine(t, Config{Interval: 10 * time.Second})
	read := func(context.Context) error { return nil }

	require.NoError(t, e.RegisterRead(pluginCtx("fast", 5*time.Second), "fast", read))
	require.NoError(t, e.RegisterRead(context.Background(), "default", read))
	require.NoError(t, e.RegisterComplexRead(pluginCtx("c", 5*time.Second), "g", "complex",
		func(context.Context, any) error { return nil }, time.Minute, nil))

	for name, want := range map[string]time.Duration{
		"fast":    5 * time.Second,
		"default": 10 * time.Second,
		"complex": time.Minute,
	} {
		iv, err := e.ReadInterval(name)
		require.NoError(t, err)
		assert.Equalf(t, want, iv, name)
	}

	require.NoError(t, e.UnregisterReadGroup("g"))
	assert.Equal(t, []string{"default", "fast"}, e.ReadNames())
}

func TestEngine_Dispatch_Validation(t *testing.T) {
	tests := map[string]struct {
		vl      *sample.ValueList
		wantErr error
	}{
		"nil":          {vl: nil, wantErr: ErrInvalidSample},
		"no type":      {vl: &sample.ValueList{Values: []sample.Value{{}}}, wantErr: ErrInvalidSample},
		"no values":    {vl: &sample.ValueList{Type: "gauge"}, wantErr: ErrInvalidSample},
		"unknown type": {vl: &sample.ValueList{Type: "nope", Values: []sample.Value{{}}}, wantErr: ErrInvalidSample},
		"arity":        {vl: &sample.ValueList{Type: "load", Values: []sample.Value{{}}}, wantErr: ErrInvalidSample},
		"valid":        {vl: gaugeVL(1)},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Config{})

			err := e.Dispatch(context.Background(), test.vl)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEngine_Dispatch_NoInterval(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.cfg.Interval = 0

	assert.ErrorIs(t, e.Dispatch(context.Background(), gaugeVL(1)), ErrNoInterval)
	assert.NoError(t, e.Dispatch(pluginCtx("p", time.Second), gaugeVL(1)))
}

func TestEngine_Dispatch_Delivers(t *testing.T) {
	e := newTestEngine(t, Config{WriteThreads: 2})
	w := &recordingWriter{}
	require.NoError(t, e.RegisterWrite(pluginCtx("sink", 0), "sink", w.write, nil))
	require.NoError(t, e.Start(context.Background()))

	vl := gaugeVL(42)
	vl.PluginInstance = "a/b"
	require.NoError(t, e.Dispatch(pluginCtx("producer", 7*time.Second), vl))
	vl.Values[0] = sample.GaugeValue(0)

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)

	got := w.last()
	assert.Equal(t, 42.0, got.Values[0].Gauge)
	assert.Equal(t, "testhost", got.Host)
	assert.Equal(t, "a_b", got.PluginInstance)
	assert.Equal(t, 7*time.Second, got.Interval)
	assert.False(t, got.Time.IsZero())
	assert.Equal(t, pctx.Context{Plugin: "producer", Interval: 7 * time.Second}, w.ctxs[0])

	assert.Equal(t, 1, e.Cache().Len())
}

func TestEngine_Write(t *testing.T) {
	ds := &sample.DataSet{Type: "gauge", Sources: []sample.DataSource{{Name: "value", Kind: sample.Gauge}}}

	tests := map[string]struct {
		writers map[string]error
		plugin  string
		wantErr error
	}{
		"no writers":             {wantErr: ErrNoWriters},
		"all succeed":            {writers: map[string]error{"a": nil, "b": nil}},
		"one fails":              {writers: map[string]error{"a": errors.New("x"), "b": nil}},
		"all fail":               {writers: map[string]error{"a": errors.New("x"), "b": errors.New("y")}, wantErr: ErrWriteFailed},
		"named":                  {writers: map[string]error{"a": nil}, plugin: "a"},
		"named case-insensitive": {writers: map[string]error{"a": nil}, plugin: "A"},
		"named missing":          {writers: map[string]error{"a": nil}, plugin: "b", wantErr: ErrNotFound},
		"named fails":            {writers: map[string]error{"a": errors.New("x")}, plugin: "a", wantErr: ErrWriteFailed},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Config{})
			for wname, werr := range test.writers {
				w := &recordingWriter{err: werr}
				require.NoError(t, e.RegisterWrite(context.Background(), wname, w.write, nil))
			}

			err := e.Write(context.Background(), test.plugin, ds, gaugeVL(1))
			switch {
			case test.wantErr != nil:
				assert.ErrorIs(t, err, test.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
	msgs   []string
}

func newLevelCounter() *levelCounter { return &levelCounter{counts: make(map[slog.Level]int)} }

func (c *levelCounter) Enabled(context.Context, slog.Level) bool { return true }

func (c *levelCounter) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[r.Level]++
	c.msgs = append(c.msgs, r.Message)
	return nil
}

func (c *levelCounter) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *levelCounter) WithGroup(string) slog.Handler      { return c }

func (c *levelCounter) count(level slog.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[level]
}

func TestEngine_FailingWriterIsThrottled(t *testing.T) {
	tests := map[string]struct {
		defaultTarget bool
	}{
		"default write target": {defaultTarget: true},
		"direct write":         {defaultTarget: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Config{})
			counter := newLevelCounter()
			e.Logger = logger.NewWithHandler(counter)

			w := &recordingWriter{err: errors.New("sink down")}
			require.NoError(t, e.RegisterWrite(context.Background(), "sink", w.write, nil))
			if test.defaultTarget {
				require.NoError(t, e.BuildChains())
			}

			start := time.Unix(1700000000, 0)
			for i := 0; i < 100; i++ {
				vl := gaugeVL(float64(i))
				vl.Host = "testhost"
				vl.Time = start.Add(time.Duration(i) * time.Second)
				e.process(context.Background(), vl)
			}

			assert.Equal(t, 100, w.count())
			assert.Equal(t, 1, counter.count(slog.LevelError))

			w.mu.Lock()
			w.err = nil
			w.mu.Unlock()

			vl := gaugeVL(1)
			vl.Host = "testhost"
			vl.Time = start.Add(time.Hour)
			e.process(context.Background(), vl)

			assert.Equal(t, 1, counter.count(slog.LevelError))
			assert.Equal(t, 1, counter.count(slog.LevelInfo))
		})
	}
}

func TestEngine_PreCacheChainStop(t *testing.T) {
	e := newTestEngine(t, Config{
		PreCacheChain: "pre",
		Chains: map[string]filterchain.Config{
			"pre": {Rules: []filterchain.RuleConfig{{
				Matches: []filterchain.InstanceConfig{{Type: "plugin_is", Options: filterchain.Options{"plugin": "drop"}}},
				Targets: []filterchain.InstanceConfig{{Type: "stop"}},
			}}},
		},
	})
	require.NoError(t, e.RegisterMatch("plugin_is", newPluginIsMatch))

	w := &recordingWriter{}
	require.NoError(t, e.RegisterWrite(context.Background(), "sink", w.write, nil))
	require.NoError(t, e.Start(context.Background()))

	dropped := gaugeVL(1)
	dropped.Plugin = "drop"
	require.NoError(t, e.Dispatch(context.Background(), dropped))
	require.NoError(t, e.Dispatch(context.Background(), gaugeVL(2)))

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, w.count())
	assert.Equal(t, "test", w.last().Plugin)
	assert.Equal(t, []string{"testhost/test/gauge"}, e.Cache().Names())
}

func TestEngine_PostCacheChain(t *testing.T) {
	e := newTestEngine(t, Config{
		PostCacheChain: "post",
		Chains: map[string]filterchain.Config{
			"post": {Rules: []filterchain.RuleConfig{{
				Matches: []filterchain.InstanceConfig{{Type: "plugin_is", Options: filterchain.Options{"plugin": "only-a"}}},
				Targets: []filterchain.InstanceConfig{
					{Type: "write", Options: filterchain.Options{"plugins": []any{"a"}}},
					{Type: "stop"},
				},
			}}},
		},
	})
	require.NoError(t, e.RegisterMatch("plugin_is", newPluginIsMatch))

	a, b := &recordingWriter{}, &recordingWriter{}
	require.NoError(t, e.RegisterWrite(context.Background(), "a", a.write, nil))
	require.NoError(t, e.RegisterWrite(context.Background(), "b", b.write, nil))

	require.NoError(t, e.BuildChains())

	onlyA := gaugeVL(1)
	onlyA.Plugin = "only-a"

	e.mu.Lock()
	e.synchronous = true
	e.mu.Unlock()

	require.NoError(t, e.Dispatch(context.Background(), onlyA))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 0, b.count())

	// no rule matched and no default targets: default write to every sink
	require.NoError(t, e.Dispatch(context.Background(), gaugeVL(2)))
	assert.Equal(t, 2, a.count())
	assert.Equal(t, 1, b.count())
}

func TestEngine_BuildChains_Errors(t *testing.T) {
	e := newTestEngine(t, Config{
		PostCacheChain: "post",
		Chains: map[string]filterchain.Config{
			"post": {Targets: []filterchain.InstanceConfig{{Type: "nope"}}},
			"ok":   {Targets: []filterchain.InstanceConfig{{Type: "stop"}}},
		},
	})

	err := e.BuildChains()
	assert.ErrorIs(t, err, filterchain.ErrUnknownTarget)
	assert.ErrorIs(t, err, filterchain.ErrUnknownChain)

	_, err = e.Chain("ok")
	assert.NoError(t, err)
	_, err = e.Chain("post")
	assert.ErrorIs(t, err, filterchain.ErrUnknownChain)
}

func TestEngine_InitFailureUnregistersPlugin(t *testing.T) {
	e := newTestEngine(t, Config{})

	bad, good := pluginCtx("bad", 0), pluginCtx("good", 0)
	read := func(context.Context) error { return nil }
	write := func(context.Context, *sample.DataSet, *sample.ValueList, any) error { return nil }

	require.NoError(t, e.RegisterInit(bad, "bad", func(context.Context) error { return errors.New("no") }))
	require.NoError(t, e.RegisterRead(bad, "bad", read))
	require.NoError(t, e.RegisterWrite(bad, "bad", write, nil))

	var initCtx pctx.Context
	require.NoError(t, e.RegisterInit(good, "good", func(ctx context.Context) error {
		initCtx = pctx.From(ctx)
		return nil
	}))
	require.NoError(t, e.RegisterRead(good, "good", read))
	require.NoError(t, e.RegisterWrite(good, "good", write, nil))

	require.NoError(t, e.Start(context.Background()))

	assert.Equal(t, []string{"good"}, e.ReadNames())
	assert.Equal(t, []string{"good"}, e.WriteNames())
	assert.Equal(t, "good", initCtx.Plugin)
	assert.ErrorIs(t, e.Start(context.Background()), ErrRunning)
}

func TestEngine_ShutdownOrder(t *testing.T) {
	e := newTestEngine(t, Config{})

	var order []string
	var mu sync.Mutex
	add := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	require.NoError(t, e.RegisterShutdown(context.Background(), "s1", func(context.Context) error {
		add("s1")
		return nil
	}))
	require.NoError(t, e.RegisterShutdown(context.Background(), "s2", func(context.Context) error {
		add("s2")
		return errors.New("ignored")
	}))
	require.NoError(t, e.Start(context.Background()))
	e.Stop(context.Background())

	assert.Equal(t, []string{"s1", "s2"}, order)
}

func TestEngine_DispatchNotification(t *testing.T) {
	e := newTestEngine(t, Config{})

	var got []*sample.Notification
	var ctxs []pctx.Context
	require.NoError(t, e.RegisterNotification(pluginCtx("notify", 0), "n", func(ctx context.Context, n *sample.Notification, ud any) error {
		got = append(got, n)
		ctxs = append(ctxs, pctx.From(ctx))
		assert.Equal(t, "ud", ud)
		return nil
	}, &UserData{Data: "ud"}))

	assert.Error(t, e.DispatchNotification(context.Background(), &sample.Notification{}))

	n := &sample.Notification{Severity: sample.SeverityWarning, Message: "hi"}
	require.NoError(t, e.DispatchNotification(pluginCtx("src", 0), n))

	require.Len(t, got, 1)
	assert.Equal(t, "testhost", got[0].Host)
	assert.Equal(t, "src", got[0].Plugin)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, "notify", ctxs[0].Plugin)
}

func TestEngine_Flush(t *testing.T) {
	e := newTestEngine(t, Config{})

	var calls []string
	flush := func(name string, err error) FlushFunc {
		return func(_ context.Context, timeout time.Duration, id string, _ any) error {
			calls = append(calls, name+":"+id+":"+timeout.String())
			return err
		}
	}
	require.NoError(t, e.RegisterFlush(context.Background(), "a", flush("a", nil), nil))
	require.NoError(t, e.RegisterFlush(context.Background(), "b", flush("b", errors.New("x")), nil))

	assert.Error(t, e.Flush(context.Background(), "", time.Second, "h/p/t"))
	assert.Equal(t, []string{"a:h/p/t:1s", "b:h/p/t:1s"}, calls)

	require.NoError(t, e.Flush(context.Background(), "a", 0, ""))
	assert.ErrorIs(t, e.Flush(context.Background(), "c", 0, ""), ErrNotFound)
}

func TestEngine_CheckMissing(t *testing.T) {
	e := newTestEngine(t, Config{Timeout: 2})

	var missing []string
	require.NoError(t, e.RegisterMissing(context.Background(), "m", func(_ context.Context, vl *sample.ValueList, _ any) error {
		missing = append(missing, vl.String())
		return nil
	}, nil))

	vl := gaugeVL(1)
	vl.Host = "h"
	vl.Time = time.Now()
	vl.Interval = time.Second
	ds, err := e.TypesDB().Get("gauge")
	require.NoError(t, err)
	require.NoError(t, e.Cache().Update(ds, vl))

	assert.Zero(t, e.CheckMissing(time.Now()))
	assert.Equal(t, 1, e.CheckMissing(time.Now().Add(3*time.Second)))
	assert.Equal(t, []string{"h/test/gauge"}, missing)
}

func TestEngine_LogCallbacks(t *testing.T) {
	e := newTestEngine(t, Config{})

	var mu sync.Mutex
	var msgs []string
	require.NoError(t, e.RegisterLog(context.Background(), "l", func(level slog.Level, msg string, _ any) {
		mu.Lock()
		defer mu.Unlock()
		msgs = append(msgs, level.String()+":"+msg)
	}, nil))

	log := e.NewLogger("tested")
	log.Warning("disk is on fire")
	log.Debug("filtered out at the default level")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"WARN:disk is on fire"}, msgs)
}

func TestEngine_CoreLogsReachLogCallbacks(t *testing.T) {
	tests := map[string]struct {
		run  func(t *testing.T, e *Engine)
		want string
	}{
		"read scheduler backoff": {
			run: func(t *testing.T, e *Engine) {
				require.NoError(t, e.RegisterRead(pluginCtx("flaky", 0), "flaky", func(context.Context) error {
					return errors.New("device gone")
				}))
				require.NoError(t, e.Start(context.Background()))
			},
			want: "read function 'flaky' (plugin 'flaky') failed: device gone; backing off",
		},
		"no write callbacks": {
			run: func(t *testing.T, e *Engine) {
				require.NoError(t, e.Dispatch(pluginCtx("producer", time.Second), gaugeVL(1)))
			},
			want: "no write callback has been registered",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			// not muted: muted loggers do not feed the log callbacks
			e, err := New(Config{Hostname: "testhost"})
			require.NoError(t, err)
			t.Cleanup(func() {
				e.Stop(context.Background())
				e.Close()
			})

			var mu sync.Mutex
			var msgs []string
			require.NoError(t, e.RegisterLog(context.Background(), "l", func(_ slog.Level, msg string, _ any) {
				mu.Lock()
				defer mu.Unlock()
				msgs = append(msgs, msg)
			}, nil))

			test.run(t, e)

			assert.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return slices.ContainsFunc(msgs, func(m string) bool { return strings.Contains(m, test.want) })
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestEngine_ReadAllOnce(t *testing.T) {
	e := newTestEngine(t, Config{})

	w := &recordingWriter{}
	require.NoError(t, e.RegisterWrite(context.Background(), "sink", w.write, nil))
	require.NoError(t, e.RegisterRead(pluginCtx("producer", 0), "producer", func(ctx context.Context) error {
		return e.Dispatch(ctx, gaugeVL(5))
	}))
	require.NoError(t, e.RegisterRead(context.Background(), "failing", func(context.Context) error {
		return errors.New("no luck")
	}))

	err := e.ReadAllOnce(context.Background())
	assert.ErrorContains(t, err, "failing")
	assert.Equal(t, 1, w.count())
	assert.Equal(t, "producer", w.ctxs[0].Plugin)
}

func TestEngine_SelfStats(t *testing.T) {
	e := newTestEngine(t, Config{CollectInternalStats: true})

	w := &recordingWriter{}
	require.NoError(t, e.RegisterWrite(context.Background(), "sink", w.write, nil))
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool { return w.count() == 3 }, time.Second, 5*time.Millisecond)

	w.mu.Lock()
	defer w.mu.Unlock()
	var ids []string
	for _, vl := range w.vls {
		ids = append(ids, vl.String())
	}
	assert.ElementsMatch(t, []string{
		"testhost/hostcollect-write_queue/queue_length",
		"testhost/hostcollect-write_queue/derive-dropped",
		"testhost/hostcollect-cache/cache_size",
	}, ids)
}

func TestEngine_DispatchMultiValue(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.synchronous = true

	w := &recordingWriter{}
	require.NoError(t, e.RegisterWrite(context.Background(), "sink", w.write, nil))

	tmpl := &sample.ValueList{Plugin: "memory"}
	err := e.DispatchMultiValue(context.Background(), tmpl, "percent", true, map[string]float64{"used": 30, "free": 10})
	require.NoError(t, err)

	got := map[string]float64{}
	for _, vl := range w.vls {
		got[vl.TypeInstance] = vl.Values[0].Gauge
	}
	assert.Equal(t, map[string]float64{"used": 75, "free": 25}, got)
}

func TestEngine_RegistrationCapturesContext(t *testing.T) {
	e := newTestEngine(t, Config{})

	var seen atomic.Value
	require.NoError(t, e.RegisterRead(pluginCtx("owner", time.Hour), "r", func(ctx context.Context) error {
		seen.Store(pctx.From(ctx))
		return nil
	}))
	require.NoError(t, e.ReadAllOnce(pluginCtx("caller", time.Second)))

	assert.Equal(t, pctx.Context{Plugin: "owner", Interval: time.Hour}, seen.Load())
}

type pluginIsMatch struct{ plugin string }

func newPluginIsMatch(_ filterchain.Env, opts filterchain.Options) (filterchain.Matcher, error) {
	var cfg struct {
		Plugin string `yaml:"plugin"`
	}
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	return &pluginIsMatch{plugin: cfg.Plugin}, nil
}

func (m *pluginIsMatch) Match(_ context.Context, _ *sample.DataSet, vl *sample.ValueList) (bool, error) {
	return vl.Plugin == m.plugin, nil
}

// SPDX-License-Identifier: GPL-3.0-or-later

package log_file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"

	"github.com/mitchellh/go-homedir"
)

func init() {
	module.Register("log_file", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "copies daemon log messages to a file or a standard stream",
	})
}

func New() *LogFile {
	return &LogFile{
		Config: Config{
			File:      "stderr",
			LogLevel:  "info",
			Timestamp: true,
		},
		now: time.Now,
	}
}

type Config struct {
	// File is "stdout", "stderr" or a path the messages are appended to.
	File      string `yaml:"file" json:"file"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	Timestamp bool   `yaml:"timestamp" json:"timestamp"`
}

type LogFile struct {
	module.Base
	Config `yaml:",inline" json:""`

	now func() time.Time
}

func (l *LogFile) Configuration() any {
	return l.Config
}

func (l *LogFile) Register(ctx context.Context, host module.Host) error {
	lvl, ok := logger.ParseLevel(l.LogLevel)
	if !ok {
		return fmt.Errorf("'log_level': unknown level '%s'", l.LogLevel)
	}

	out, err := l.open()
	if err != nil {
		return err
	}

	s := &sink{out: out, min: lvl, timestamp: l.Timestamp, now: l.now}
	return host.RegisterLog(ctx, "log_file", writeRecord, &engine.UserData{Data: s, Free: closeSink})
}

func (l *LogFile) open() (io.Writer, error) {
	switch strings.ToLower(l.File) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	path, err := homedir.Expand(l.File)
	if err != nil {
		return nil, fmt.Errorf("'file': %v", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

type sink struct {
	mu        sync.Mutex
	out       io.Writer
	min       slog.Level
	timestamp bool
	now       func() time.Time
}

// A log callback has nowhere to report its own failures, write errors are dropped.
func writeRecord(level slog.Level, msg string, ud any) {
	s, ok := ud.(*sink)
	if !ok || level < s.min {
		return
	}

	var sb strings.Builder
	if s.timestamp {
		sb.WriteString("[" + s.now().Format(time.DateTime) + "] ")
	}
	sb.WriteString("[" + logger.LevelName(level) + "] ")
	sb.WriteString(msg)
	sb.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		_, _ = io.WriteString(s.out, sb.String())
	}
}

func closeSink(data any) {
	s, ok := data.(*sink)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.out.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		_ = f.Close()
	}
	s.out = nil
}

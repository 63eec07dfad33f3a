// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"log/slog"
	"strings"
)

const (
	LevelNotice  = slog.Level(2)
	levelNotice  = LevelNotice
	levelDisable = slog.Level(99)
)

var (
	customLevels = map[slog.Leveler]string{
		levelNotice: "NOTICE",
	}
	customLevelsTerm = map[slog.Leveler]string{
		levelNotice: "\u001B[34m" + "NTC" + "\u001B[0m",
	}
)

var Level = &level{lvl: &slog.LevelVar{}}

type level struct {
	lvl *slog.LevelVar
}

func (l *level) Enabled(level slog.Level) bool {
	return level >= l.lvl.Level()
}

func (l *level) Set(level slog.Level) {
	l.lvl.Set(level)
}

func (l *level) Get() slog.Level {
	return l.lvl.Level()
}

func (l *level) SetByName(level string) {
	if v, ok := ParseLevel(level); ok {
		l.lvl.Set(v)
	}
}

// ParseLevel maps a configuration level name to a slog level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "err", "error":
		return slog.LevelError, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "notice":
		return levelNotice, true
	case "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "emergency", "alert", "critical":
		return levelDisable, true
	}
	return 0, false
}

// LevelName returns the lower-case name used in log output for lvl.
func LevelName(lvl slog.Level) string {
	if s, ok := customLevels[lvl]; ok {
		return strings.ToLower(s)
	}
	return strings.ToLower(lvl.String())
}

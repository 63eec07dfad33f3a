// SPDX-License-Identifier: GPL-3.0-or-later

package write_redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"

	"github.com/redis/go-redis/v9"
)

func init() {
	module.Register("write_redis", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "stores samples in Redis sorted sets",
	})
}

func New() *WriteRedis {
	return &WriteRedis{
		Config: Config{
			Address:   "redis://@localhost:6379",
			Timeout:   confopt.Duration(time.Second),
			Prefix:    "hostcollect/",
			BatchSize: 1,
		},
		newRedisClient: newRedisClient,
	}
}

type Config struct {
	Address  string           `yaml:"address" json:"address"`
	Username string           `yaml:"username,omitempty" json:"username"`
	Password string           `yaml:"password,omitempty" json:"password"`
	Timeout  confopt.Duration `yaml:"timeout" json:"timeout"`
	Prefix   string           `yaml:"prefix" json:"prefix"`
	// MaxSetSize trims every sorted set to its newest entries. Zero keeps everything.
	MaxSetSize int64 `yaml:"max_set_size,omitempty" json:"max_set_size"`
	// BatchSize is the number of samples held back before they are sent; flush sends them early.
	BatchSize  int  `yaml:"batch_size" json:"batch_size"`
	StoreRates bool `yaml:"store_rates" json:"store_rates"`
}

type (
	WriteRedis struct {
		module.Base
		Config `yaml:",inline" json:""`

		newRedisClient func(Config) (redisClient, error)
	}
	redisClient interface {
		ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
		ZRemRangeByRank(ctx context.Context, key string, start, stop int64) *redis.IntCmd
		SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
		Close() error
	}
)

func (w *WriteRedis) Configuration() any {
	return w.Config
}

func (w *WriteRedis) Register(ctx context.Context, host module.Host) error {
	if w.Address == "" {
		return errors.New("'address' not set")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 1
	}

	rdb, err := w.newRedisClient(w.Config)
	if err != nil {
		return fmt.Errorf("init redis client: %v", err)
	}

	st := newStore(rdb, w.Config, w.Logger)
	if w.StoreRates {
		st.rates = host
	}

	ud := &engine.UserData{Data: st, Free: func(v any) { v.(*store).close() }}
	return errors.Join(
		host.RegisterWrite(ctx, "write_redis", writeValues, ud),
		host.RegisterFlush(ctx, "write_redis", flush, &engine.UserData{Data: st}),
	)
}

func newRedisClient(cfg Config) (redisClient, error) {
	opts, err := redis.ParseURL(cfg.Address)
	if err != nil {
		return nil, err
	}

	if opts.Username == "" && cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if opts.Password == "" && cfg.Password != "" {
		opts.Password = cfg.Password
	}

	opts.PoolSize = 1
	opts.DialTimeout = cfg.Timeout.Duration()
	opts.ReadTimeout = cfg.Timeout.Duration()
	opts.WriteTimeout = cfg.Timeout.Duration()

	return redis.NewClient(opts), nil
}

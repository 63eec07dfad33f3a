// SPDX-License-Identifier: GPL-3.0-or-later

package write_redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/redis/go-redis/v9"
)

type rateSource interface {
	Rates(vl *sample.ValueList) ([]float64, error)
}

// store buffers sorted set members per key until the batch is full or flushed.
type store struct {
	*logger.Logger

	rdb        redisClient
	prefix     string
	maxSetSize int64
	batchSize  int
	rates      rateSource

	mu      sync.Mutex
	pending map[string][]redis.Z
	count   int
}

func newStore(rdb redisClient, cfg Config, log *logger.Logger) *store {
	return &store{
		Logger:     log,
		rdb:        rdb,
		prefix:     cfg.Prefix,
		maxSetSize: cfg.MaxSetSize,
		batchSize:  cfg.BatchSize,
		pending:    make(map[string][]redis.Z),
	}
}

func writeValues(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error {
	st, ok := ud.(*store)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	return st.add(ctx, ds, vl)
}

func flush(ctx context.Context, _ time.Duration, identifier string, ud any) error {
	st, ok := ud.(*store)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.send(ctx, identifier)
}

func (st *store) add(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) error {
	ts := vl.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	member, err := st.format(ds, vl, ts)
	if err != nil {
		return err
	}
	z := redis.Z{Score: float64(ts.UnixMilli()) / 1000, Member: member}
	id := vl.Identifier().String()

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.pending[id]; !ok {
		if err := st.rdb.SAdd(ctx, st.prefix+"values", id).Err(); err != nil {
			return fmt.Errorf("SADD '%svalues': %v", st.prefix, err)
		}
	}
	st.pending[id] = append(st.pending[id], z)
	st.count++

	if st.count < st.batchSize {
		return nil
	}
	return st.send(ctx, "")
}

// send writes the pending members of identifier, or of every identifier if it is empty.
func (st *store) send(ctx context.Context, identifier string) error {
	ids := make([]string, 0, len(st.pending))
	for id := range st.pending {
		if identifier == "" || id == identifier {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var errs []error
	for _, id := range ids {
		members := st.pending[id]
		key := st.prefix + id
		if err := st.rdb.ZAdd(ctx, key, members...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("ZADD '%s': %v", key, err))
			continue
		}
		delete(st.pending, id)
		st.count -= len(members)

		if st.maxSetSize > 0 {
			if err := st.rdb.ZRemRangeByRank(ctx, key, 0, -st.maxSetSize-1).Err(); err != nil {
				st.Warningf("trimming '%s': %v", key, err)
			}
		}
	}
	return errors.Join(errs...)
}

// format renders "<time>:<v1>:<v2>...".
func (st *store) format(ds *sample.DataSet, vl *sample.ValueList, ts time.Time) (string, error) {
	if len(ds.Sources) != len(vl.Values) {
		return "", fmt.Errorf("%s: data set has %d sources, got %d values", vl.Identifier(), len(ds.Sources), len(vl.Values))
	}

	var rates []float64
	if st.rates != nil {
		var err error
		if rates, err = st.rates.Rates(vl); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	sb.WriteString(strconv.FormatFloat(float64(ts.UnixMilli())/1000, 'f', -1, 64))
	for i, src := range ds.Sources {
		sb.WriteByte(':')
		switch {
		case src.Kind == sample.Gauge:
			sb.WriteString(formatFloat(vl.Values[i].Gauge))
		case rates != nil:
			sb.WriteString(formatFloat(rates[i]))
		case src.Kind == sample.Derive:
			sb.WriteString(strconv.FormatInt(vl.Values[i].Derive, 10))
		case src.Kind == sample.Counter:
			sb.WriteString(strconv.FormatUint(vl.Values[i].Counter, 10))
		default:
			sb.WriteString(strconv.FormatUint(vl.Values[i].Absolute, 10))
		}
	}
	return sb.String(), nil
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "U"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (st *store) close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.send(context.Background(), ""); err != nil {
		st.Warningf("sending pending samples on close: %v", err)
	}
	if err := st.rdb.Close(); err != nil {
		st.Warningf("error on closing redis client: %v", err)
	}
}

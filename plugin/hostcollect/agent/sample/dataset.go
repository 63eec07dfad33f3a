// SPDX-License-Identifier: GPL-3.0-or-later

package sample

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// DataSource describes one slot of a data set. Min and Max are NaN when unbounded.
type DataSource struct {
	Name string
	Kind DSType
	Min  float64
	Max  float64
}

// DataSet is the schema of a sample type.
type DataSet struct {
	Type    string
	Sources []DataSource
}

// Check verifies that vl matches the schema.
func (ds *DataSet) Check(vl *ValueList) error {
	if ds.Type != vl.Type {
		return fmt.Errorf("data set '%s' does not describe type '%s'", ds.Type, vl.Type)
	}
	if len(ds.Sources) != len(vl.Values) {
		return fmt.Errorf("%s: data set '%s' has %d sources, got %d values",
			vl, ds.Type, len(ds.Sources), len(vl.Values))
	}
	return nil
}

func (ds *DataSet) SourceNames() []string {
	names := make([]string, 0, len(ds.Sources))
	for _, s := range ds.Sources {
		names = append(names, s.Name)
	}
	return names
}

var ErrUnknownType = errors.New("unknown type")

//go:embed types.db
var builtinTypes string

// TypesDB is a registry of data sets keyed by type name. It is safe for concurrent use.
type TypesDB struct {
	mu   sync.RWMutex
	sets map[string]*DataSet
}

// NewTypesDB returns a database preloaded with the built-in types.
func NewTypesDB() *TypesDB {
	db := &TypesDB{sets: make(map[string]*DataSet)}
	if err := db.Load(strings.NewReader(builtinTypes)); err != nil {
		panic(fmt.Sprintf("sample: built-in types: %v", err))
	}
	return db
}

func (db *TypesDB) Get(typ string) (*DataSet, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ds, ok := db.sets[typ]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownType, typ)
	}
	return ds, nil
}

// Add registers ds, replacing an existing set with the same type.
func (db *TypesDB) Add(ds *DataSet) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sets[ds.Type] = ds
}

func (db *TypesDB) Types() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	types := make([]string, 0, len(db.sets))
	for k := range db.sets {
		types = append(types, k)
	}
	slices.Sort(types)
	return types
}

func (db *TypesDB) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := db.Load(f); err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	return nil
}

// Load reads types.db formatted definitions from r.
func (db *TypesDB) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	var num int
	for sc.Scan() {
		num++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ds, err := ParseTypesLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %v", num, err)
		}
		db.Add(ds)
	}
	return sc.Err()
}

// ParseTypesLine parses one definition: "name  ds:KIND:min:max[, ds:KIND:min:max...]".
func ParseTypesLine(line string) (*DataSet, error) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return nil, fmt.Errorf("no data sources in '%s'", line)
	}
	ds := &DataSet{Type: line[:i]}
	rest := line[i:]

	for _, field := range strings.Split(rest, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		src, err := parseDataSource(field)
		if err != nil {
			return nil, fmt.Errorf("type '%s': %v", ds.Type, err)
		}
		ds.Sources = append(ds.Sources, src)
	}
	if len(ds.Sources) == 0 {
		return nil, fmt.Errorf("type '%s' has no data sources", ds.Type)
	}
	return ds, nil
}

func parseDataSource(s string) (DataSource, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return DataSource{}, fmt.Errorf("invalid data source '%s'", s)
	}
	kind, err := ParseDSType(parts[1])
	if err != nil {
		return DataSource{}, err
	}
	lo, err := parseBound(parts[2])
	if err != nil {
		return DataSource{}, fmt.Errorf("data source '%s' min: %v", parts[0], err)
	}
	hi, err := parseBound(parts[3])
	if err != nil {
		return DataSource{}, fmt.Errorf("data source '%s' max: %v", parts[0], err)
	}
	return DataSource{Name: parts[0], Kind: kind, Min: lo, Max: hi}, nil
}

func parseBound(s string) (float64, error) {
	if s == "U" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

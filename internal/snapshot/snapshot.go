package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tradeengine/types"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is everything one engine run needs for a single portfolio.
type Snapshot struct {
	PortfolioID string
	Portfolio   types.PortfolioState
	Signals     []types.SignalSnapshot
	Prices      types.Prices
}

// file is the on-disk layout. JSON documents decode through the same
// path since yaml.v3 accepts them.
type file struct {
	Portfolio portfolioDoc      `yaml:"portfolio"`
	Signals   []signalDoc       `yaml:"signals"`
	Prices    map[string]string `yaml:"prices"`
}

type portfolioDoc struct {
	ID           string        `yaml:"id"`
	Timestamp    string        `yaml:"timestamp"`
	Cash         string        `yaml:"cash"`
	BaseCurrency string        `yaml:"base_currency"`
	Positions    []positionDoc `yaml:"positions"`
}

type positionDoc struct {
	AssetID    string `yaml:"asset_id"`
	Quantity   string `yaml:"quantity"`
	EntryPrice string `yaml:"entry_price"`
}

type signalDoc struct {
	SignalID   string         `yaml:"signal_id"`
	AssetID    string         `yaml:"asset_id"`
	Timestamp  string         `yaml:"timestamp"`
	Name       string         `yaml:"name"`
	Value      string         `yaml:"value"`
	Confidence string         `yaml:"confidence"`
	Regime     string         `yaml:"regime"`
	Metadata   map[string]any `yaml:"metadata"`
}

// Decode reads one snapshot document and builds the domain values through
// their validating constructors. limits are attached to the portfolio.
func Decode(r io.Reader, limits types.RiskLimits) (Snapshot, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Snapshot{}, &types.ValidationError{Field: "snapshot", Reason: "empty document"}
		}
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc.build(limits)
}

// LoadFile decodes the snapshot stored at path.
func LoadFile(path string, limits types.RiskLimits) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%s: %w", path, ErrSnapshotNotFound)
		}
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := Decode(f, limits)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if s.PortfolioID == "" {
		s.PortfolioID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// File serves a single snapshot file regardless of the portfolio id asked
// for, which is only used to label the result.
type File struct {
	Path   string
	Limits types.RiskLimits
}

func (f File) Load(_ context.Context, portfolioID string) (Snapshot, error) {
	s, err := LoadFile(f.Path, f.Limits)
	if err != nil {
		return Snapshot{}, err
	}
	if portfolioID != "" {
		s.PortfolioID = portfolioID
	}
	return s, nil
}

var extensions = []string{".yaml", ".yml", ".json"}

// Dir serves snapshots from a directory, one file per portfolio named
// <portfolio id>.yaml, .yml or .json.
type Dir struct {
	Root   string
	Limits types.RiskLimits
}

// Load returns the snapshot for portfolioID.
func (d Dir) Load(_ context.Context, portfolioID string) (Snapshot, error) {
	for _, ext := range extensions {
		path := filepath.Join(d.Root, portfolioID+ext)
		if _, err := os.Stat(path); err == nil {
			s, err := LoadFile(path, d.Limits)
			if err != nil {
				return Snapshot{}, err
			}
			s.PortfolioID = portfolioID
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("portfolio %s in %s: %w", portfolioID, d.Root, ErrSnapshotNotFound)
}

// PortfolioIDs lists the portfolios available in the directory, sorted.
func (d Dir) PortfolioIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !knownExtension(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func knownExtension(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (doc file) build(limits types.RiskLimits) (Snapshot, error) {
	p := doc.Portfolio
	ts, err := parseTime("portfolio.timestamp", p.Timestamp)
	if err != nil {
		return Snapshot{}, err
	}
	cash, err := parseDecimal("portfolio.cash", p.Cash)
	if err != nil {
		return Snapshot{}, err
	}
	positions := make([]types.Position, 0, len(p.Positions))
	for i, pd := range p.Positions {
		qty, err := parseDecimal(fmt.Sprintf("positions[%d].quantity", i), pd.Quantity)
		if err != nil {
			return Snapshot{}, err
		}
		entry, err := parseDecimal(fmt.Sprintf("positions[%d].entry_price", i), pd.EntryPrice)
		if err != nil {
			return Snapshot{}, err
		}
		pos, err := types.NewPosition(pd.AssetID, qty, entry)
		if err != nil {
			return Snapshot{}, err
		}
		positions = append(positions, pos)
	}
	portfolio, err := types.NewPortfolioState(ts, cash, positions, p.BaseCurrency, limits)
	if err != nil {
		return Snapshot{}, err
	}

	signals := make([]types.SignalSnapshot, 0, len(doc.Signals))
	for i, sd := range doc.Signals {
		s, err := sd.build(i)
		if err != nil {
			return Snapshot{}, err
		}
		signals = append(signals, s)
	}

	raw := make(map[string]decimal.Decimal, len(doc.Prices))
	for asset, v := range doc.Prices {
		px, err := parseDecimal("prices."+asset, v)
		if err != nil {
			return Snapshot{}, err
		}
		raw[asset] = px
	}
	prices, err := types.NewPrices(raw)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		PortfolioID: p.ID,
		Portfolio:   portfolio,
		Signals:     signals,
		Prices:      prices,
	}, nil
}

func (sd signalDoc) build(i int) (types.SignalSnapshot, error) {
	field := func(name string) string { return fmt.Sprintf("signals[%d].%s", i, name) }

	ts, err := parseTime(field("timestamp"), sd.Timestamp)
	if err != nil {
		return types.SignalSnapshot{}, err
	}
	value, err := parseDecimal(field("value"), sd.Value)
	if err != nil {
		return types.SignalSnapshot{}, err
	}
	confidence, err := parseDecimal(field("confidence"), sd.Confidence)
	if err != nil {
		return types.SignalSnapshot{}, err
	}

	var opts []types.SignalOption
	if sd.Regime != "" {
		opts = append(opts, types.WithRegime(sd.Regime))
	}
	if len(sd.Metadata) > 0 {
		entries := make(map[string]types.MetadataValue, len(sd.Metadata))
		for k, v := range sd.Metadata {
			mv, err := metadataValue(v)
			if err != nil {
				return types.SignalSnapshot{}, &types.ValidationError{Field: field("metadata." + k), Reason: err.Error()}
			}
			entries[k] = mv
		}
		md, err := types.NewMetadata(entries)
		if err != nil {
			return types.SignalSnapshot{}, err
		}
		opts = append(opts, types.WithMetadata(md))
	}
	return types.NewSignalSnapshot(sd.SignalID, sd.AssetID, ts, sd.Name, value, confidence, opts...)
}

func metadataValue(v any) (types.MetadataValue, error) {
	switch x := v.(type) {
	case string:
		return types.StringValue(x), nil
	case bool:
		return types.BoolValue(x), nil
	case int:
		return types.NumberValue(float64(x)), nil
	case int64:
		return types.NumberValue(float64(x)), nil
	case uint64:
		return types.NumberValue(float64(x)), nil
	case float64:
		return types.NumberValue(x), nil
	}
	return types.MetadataValue{}, fmt.Errorf("unsupported value of type %T", v)
}

func parseDecimal(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, &types.ValidationError{Field: field, Reason: fmt.Sprintf("not a number: %q", v)}
	}
	return d, nil
}

func parseTime(field, v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, &types.ValidationError{Field: field, Reason: fmt.Sprintf("not an RFC3339 timestamp: %q", v)}
	}
	return ts, nil
}

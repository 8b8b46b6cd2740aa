package types

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	one    = decimal.NewFromInt(1)
	negOne = decimal.NewFromInt(-1)
)

// SignalSnapshot is one signal reading for one asset.
type SignalSnapshot struct {
	signalID   string
	assetID    string
	timestamp  time.Time
	name       string
	value      decimal.Decimal
	confidence decimal.Decimal
	regime     string
	hasRegime  bool
	metadata   Metadata
}

type SignalOption func(*SignalSnapshot)

// WithRegime attaches a regime label. The label is carried with the
// signal but does not change sizing.
func WithRegime(label string) SignalOption {
	return func(s *SignalSnapshot) {
		s.regime = label
		s.hasRegime = true
	}
}

func WithMetadata(m Metadata) SignalOption {
	return func(s *SignalSnapshot) {
		s.metadata = m
	}
}

// NewSignalSnapshot rejects a value outside [-1, 1] or a confidence
// outside [0, 1]; neither is ever clamped.
func NewSignalSnapshot(
	signalID string,
	assetID string,
	timestamp time.Time,
	name string,
	value decimal.Decimal,
	confidence decimal.Decimal,
	opts ...SignalOption,
) (SignalSnapshot, error) {
	if signalID == "" {
		return SignalSnapshot{}, validationErr("signal_id", "must not be empty")
	}
	if assetID == "" {
		return SignalSnapshot{}, validationErr("asset_id", "must not be empty (signal %s)", signalID)
	}
	if value.LessThan(negOne) || value.GreaterThan(one) {
		return SignalSnapshot{}, validationErr("signal_value", "%s outside [-1, 1] (signal %s)", value, signalID)
	}
	if confidence.IsNegative() || confidence.GreaterThan(one) {
		return SignalSnapshot{}, validationErr("signal_confidence", "%s outside [0, 1] (signal %s)", confidence, signalID)
	}
	s := SignalSnapshot{
		signalID:   signalID,
		assetID:    assetID,
		timestamp:  timestamp,
		name:       name,
		value:      value,
		confidence: confidence,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s, nil
}

func (s SignalSnapshot) SignalID() string            { return s.signalID }
func (s SignalSnapshot) AssetID() string             { return s.assetID }
func (s SignalSnapshot) Timestamp() time.Time        { return s.timestamp }
func (s SignalSnapshot) Name() string                { return s.name }
func (s SignalSnapshot) Value() decimal.Decimal      { return s.value }
func (s SignalSnapshot) Confidence() decimal.Decimal { return s.confidence }
func (s SignalSnapshot) Metadata() Metadata          { return s.metadata }

// Regime returns the regime label and whether one was set.
func (s SignalSnapshot) Regime() (string, bool) { return s.regime, s.hasRegime }

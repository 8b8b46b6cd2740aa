package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by the engine matches exactly one of
// these under errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrMissingPrice        = errors.New("missing price")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrRiskLimitViolation  = errors.New("risk limit violation")
	ErrConfiguration       = errors.New("configuration error")
)

// ValidationError reports malformed input rejected at construction time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MissingPriceError reports an asset referenced by a signal or a held
// position that has no entry in the price map.
type MissingPriceError struct {
	AssetID string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("%s for asset %q", ErrMissingPrice, e.AssetID)
}

func (e *MissingPriceError) Is(target error) bool { return target == ErrMissingPrice }

// InsufficientCapitalError reports non-positive equity at the start of sizing.
type InsufficientCapitalError struct {
	Equity decimal.Decimal
}

func (e *InsufficientCapitalError) Error() string {
	return fmt.Sprintf("%s: equity %s is not positive", ErrInsufficientCapital, e.Equity)
}

func (e *InsufficientCapitalError) Is(target error) bool { return target == ErrInsufficientCapital }

// RiskLimitViolation reports a limit that cannot be satisfied even after
// clamping the position under consideration to zero.
type RiskLimitViolation struct {
	Limit   LimitKind
	AssetID string
	Detail  string
}

func (e *RiskLimitViolation) Error() string {
	return fmt.Sprintf("%s: %s for asset %q: %s", ErrRiskLimitViolation, e.Limit, e.AssetID, e.Detail)
}

func (e *RiskLimitViolation) Is(target error) bool { return target == ErrRiskLimitViolation }

// ConfigurationError reports invalid RiskLimits or RiskConfig values.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func validationErr(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

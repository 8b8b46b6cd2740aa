package types

import "fmt"

// Side is the direction of a proposed trade.
type Side uint8

// OrderType is the execution style attached to a proposed trade.
type OrderType uint8

// SizingStage names the step that determined a trade's final size.
type SizingStage uint8

// LimitKind identifies one of the portfolio risk limits.
type LimitKind uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

const (
	OrderTypeMarket OrderType = iota + 1
	OrderTypeLimit
)

const (
	StageSignal SizingStage = iota + 1
	StageLimitClamped
	StageRounding
)

const (
	LimitNone LimitKind = iota
	LimitSingleAssetWeight
	LimitPositionNotional
	LimitGrossExposure
	LimitLeverage
)

var sideNames = map[Side]string{
	SideBuy:  "BUY",
	SideSell: "SELL",
}

var orderTypeNames = map[OrderType]string{
	OrderTypeMarket: "MARKET",
	OrderTypeLimit:  "LIMIT",
}

var stageNames = map[SizingStage]string{
	StageSignal:       "signal-driven",
	StageLimitClamped: "limit-clamped",
	StageRounding:     "rounding-adjusted",
}

var limitNames = map[LimitKind]string{
	LimitNone:              "none",
	LimitSingleAssetWeight: "max_single_asset_weight",
	LimitPositionNotional:  "max_position_size_notional",
	LimitGrossExposure:     "max_gross_exposure",
	LimitLeverage:          "max_leverage",
}

func (s Side) String() string {
	if n, ok := sideNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

func (s Side) MarshalText() ([]byte, error) {
	n, ok := sideNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown side %d", uint8(s))
	}
	return []byte(n), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	for k, v := range sideNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return validationErr("side", "unknown value %q", string(b))
}

func (o OrderType) String() string {
	if n, ok := orderTypeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("OrderType(%d)", uint8(o))
}

func (o OrderType) MarshalText() ([]byte, error) {
	n, ok := orderTypeNames[o]
	if !ok {
		return nil, fmt.Errorf("unknown order type %d", uint8(o))
	}
	return []byte(n), nil
}

func (o *OrderType) UnmarshalText(b []byte) error {
	for k, v := range orderTypeNames {
		if v == string(b) {
			*o = k
			return nil
		}
	}
	return validationErr("order_type", "unknown value %q", string(b))
}

// ParseOrderType maps "MARKET"/"LIMIT" to an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	var o OrderType
	if err := o.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return o, nil
}

func (s SizingStage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SizingStage(%d)", uint8(s))
}

func (s SizingStage) MarshalText() ([]byte, error) {
	n, ok := stageNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown sizing stage %d", uint8(s))
	}
	return []byte(n), nil
}

func (l LimitKind) String() string {
	if n, ok := limitNames[l]; ok {
		return n
	}
	return fmt.Sprintf("LimitKind(%d)", uint8(l))
}

func (l LimitKind) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

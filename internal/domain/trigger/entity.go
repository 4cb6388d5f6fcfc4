package trigger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// DefaultSlippagePercent is applied when a trigger carries no explicit tolerance.
const DefaultSlippagePercent = 5

// Trigger represents a user-defined conditional swap rule
type Trigger struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	// Rule
	Symbol      string          `db:"symbol"`
	Side        Side            `db:"side"` // buy, sell
	Condition   Condition       `db:"condition"`
	TargetPrice decimal.Decimal `db:"target_price"`
	Amount      decimal.Decimal `db:"amount"`

	// SlippagePercent bounds the realized swap output, whole percent
	SlippagePercent int64 `db:"slippage_percent"`

	// SmartConditionsRaw is the stored JSONB payload; validated on read via
	// SmartConditionList so a malformed payload never reaches evaluation
	SmartConditionsRaw []byte `db:"smart_conditions"`

	Status Status `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SmartCondition is one secondary metric threshold that must also hold
type SmartCondition struct {
	Metric   Metric          `json:"metric"`
	Operator Operator        `json:"operator"`
	Value    decimal.Decimal `json:"value"`
}

// SmartConditionList parses and validates the stored secondary conditions.
// An empty payload means no secondary conditions. Any condition outside the
// closed metric/operator sets makes the whole payload invalid: the trigger
// must not execute on intent the engine cannot fully understand.
func (t *Trigger) SmartConditionList() ([]SmartCondition, error) {
	if len(t.SmartConditionsRaw) == 0 {
		return nil, nil
	}

	var conds []SmartCondition
	if err := json.Unmarshal(t.SmartConditionsRaw, &conds); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCondition, err.Error())
	}

	for i, c := range conds {
		if !c.Metric.Valid() {
			return nil, errors.Wrapf(errors.ErrInvalidCondition, "condition %d: unknown metric %q", i, c.Metric)
		}
		if !c.Operator.Valid() {
			return nil, errors.Wrapf(errors.ErrInvalidCondition, "condition %d: unknown operator %q", i, c.Operator)
		}
	}

	return conds, nil
}

// SetSmartConditions serializes validated conditions onto the trigger
func (t *Trigger) SetSmartConditions(conds []SmartCondition) error {
	if len(conds) == 0 {
		t.SmartConditionsRaw = nil
		return nil
	}
	raw, err := json.Marshal(conds)
	if err != nil {
		return errors.Wrap(err, "failed to marshal smart conditions")
	}
	t.SmartConditionsRaw = raw
	return nil
}

// Side defines which direction the swap runs
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid checks if side is valid
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// String returns string representation
func (s Side) String() string {
	return string(s)
}

// Condition defines the primary price comparison
type Condition string

const (
	ConditionAbove Condition = "ABOVE"
	ConditionBelow Condition = "BELOW"
)

// Valid checks if condition is valid
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// String returns string representation
func (c Condition) String() string {
	return string(c)
}

// Metric names the market measurement a secondary condition compares against
type Metric string

const (
	MetricPrice     Metric = "PRICE"
	MetricRSI       Metric = "RSI"
	MetricVolume    Metric = "VOLUME"
	MetricMA        Metric = "MA"
	MetricSentiment Metric = "SENTIMENT"
	MetricGas       Metric = "GAS"
)

// Valid checks if metric belongs to the closed set
func (m Metric) Valid() bool {
	switch m {
	case MetricPrice, MetricRSI, MetricVolume, MetricMA, MetricSentiment, MetricGas:
		return true
	}
	return false
}

// String returns string representation
func (m Metric) String() string {
	return string(m)
}

// Operator defines the comparison applied to a secondary metric
type Operator string

const (
	OperatorGT Operator = "GT"
	OperatorLT Operator = "LT"
)

// Valid checks if operator is valid
func (o Operator) Valid() bool {
	return o == OperatorGT || o == OperatorLT
}

// Compare applies the operator to (value, threshold)
func (o Operator) Compare(value, threshold decimal.Decimal) bool {
	switch o {
	case OperatorGT:
		return value.GreaterThan(threshold)
	case OperatorLT:
		return value.LessThan(threshold)
	}
	return false
}

// Status defines the trigger lifecycle status
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExecuted  Status = "EXECUTED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Valid checks if status is valid
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExecuted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status never changes again
func (s Status) IsTerminal() bool {
	switch s {
	case StatusExecuted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

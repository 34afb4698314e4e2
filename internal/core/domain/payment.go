package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StopWindow is how long after acceptance a payment remains stoppable.
// The comparison is strict: a payment exactly StopWindow old can no
// longer be stopped.
const StopWindow = 15 * time.Minute

// StopAmountLimit is the largest amount that may be stopped
// automatically. Larger payments require customer service.
var StopAmountLimit = decimal.NewFromInt(10000)

// Payment is the central entity of the domain.
// It carries no JSON or DB tags, it is a pure business model.
type Payment struct {
	ID         int64
	CardNumber string
	Amount     decimal.Decimal
	Timestamp  time.Time
	Name       string
	IsDeleted  bool
}

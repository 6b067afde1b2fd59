package resilience

import (
	"fmt"
	"time"
)

type RejectReason string

const (
	ReasonCircuitOpen RejectReason = "circuit_open"
	ReasonRateLimited RejectReason = "rate_limited"
)

// Rejection — транзиентный отказ защитного слоя. Вызов не выполнялся;
// клиенту следует повторить с экспоненциальной задержкой не раньше,
// чем через RetryAfter.
type Rejection struct {
	Operation  string
	Reason     RejectReason
	RetryAfter time.Duration
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected (%s), retry after %s", r.Operation, r.Reason, r.RetryAfter)
}

// TimeoutError — операция не уложилась в call_timeout. Засчитывается
// брейкеру как отказ и возвращается вызывающему.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
}

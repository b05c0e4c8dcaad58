package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data integrity errors abort a run; continuing would corrupt the
	// value series and everything derived from it.
	ErrPriceMissing      = &Error{Code: "PRICE_MISSING", Message: "price missing for required date and ticker"}
	ErrZeroVariance      = &Error{Code: "ZERO_VARIANCE", Message: "zero variance in beta denominator"}
	ErrDegenerateWeights = &Error{Code: "DEGENERATE_WEIGHTS", Message: "decile weight denominator is zero"}

	// Recoverable, per-window or per-rebalance: the affected date/ticker
	// is skipped without touching the rest of the run.
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient trailing observations"}

	// Data errors
	ErrNoData      = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrRunNotFound = &Error{Code: "RUN_NOT_FOUND", Message: "backtest run not found"}
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Source errors
	ErrSourceFailed = &Error{Code: "SOURCE_FAILED", Message: "price source request failed"}

	// Pipeline errors
	ErrBacktestFailed = &Error{Code: "BACKTEST_FAILED", Message: "backtest run failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)

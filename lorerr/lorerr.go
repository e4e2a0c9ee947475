// Package lorerr defines the closed set of error kinds used across the
// mesh and ledger core (spec §7). Every rejection path returns one of
// these kinds with enough context for the caller to react without
// string-matching the error's message.
package lorerr

import "fmt"

// Kind is a closed enumeration of error categories. New kinds are never
// added silently: every subsystem that can fail enumerates which Kinds
// it produces.
type Kind int

const (
	// Validation: input rejected before any state change. No retry.
	Validation Kind = iota
	// NotFound: referenced entity does not exist. Idempotent.
	NotFound
	// InsufficientFunds: UTXO selection failed.
	InsufficientFunds
	// DoubleSpend: input already spent.
	DoubleSpend
	// TimedOut: ACK or reassembly deadline exceeded.
	TimedOut
	// RateLimited: per-sender quota exceeded.
	RateLimited
	// ProtocolViolation: malformed frame, bad signature, loop, stale sequence.
	ProtocolViolation
	// Transient: transport/storage error that may succeed on retry.
	Transient
	// Fatal: invariant violation. Never recovered automatically.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case InsufficientFunds:
		return "insufficient_funds"
	case DoubleSpend:
		return "double_spend"
	case TimedOut:
		return "timed_out"
	case RateLimited:
		return "rate_limited"
	case ProtocolViolation:
		return "protocol_violation"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with a human-readable message and a structured
// context payload (e.g. {"required": 100, "available": 40}).
type Error struct {
	Kind    Kind
	Msg     string
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(kind Kind, msg string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Msg: msg, Context: ctx}
}

func Validationf(format string, args ...any) *Error {
	return new(Validation, fmt.Sprintf(format, args...), nil)
}

func NotFoundf(format string, args ...any) *Error {
	return new(NotFound, fmt.Sprintf(format, args...), nil)
}

func InsufficientFundsErr(required, available uint64) *Error {
	return new(InsufficientFunds, "insufficient funds", map[string]any{
		"required":  required,
		"available": available,
	})
}

func DoubleSpendErr(format string, args ...any) *Error {
	return new(DoubleSpend, fmt.Sprintf(format, args...), nil)
}

func TimedOutf(format string, args ...any) *Error {
	return new(TimedOut, fmt.Sprintf(format, args...), nil)
}

func RateLimitedf(format string, args ...any) *Error {
	return new(RateLimited, fmt.Sprintf(format, args...), nil)
}

func ProtocolViolationf(format string, args ...any) *Error {
	return new(ProtocolViolation, fmt.Sprintf(format, args...), nil)
}

func Transientf(format string, args ...any) *Error {
	return new(Transient, fmt.Sprintf(format, args...), nil)
}

func Fatalf(format string, args ...any) *Error {
	return new(Fatal, fmt.Sprintf(format, args...), nil)
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error or a
// value with a Kind() Kind method, and ok=false otherwise. Callers use
// this instead of inspecting Error() text.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	if k, ok := err.(interface{ Kind() Kind }); ok {
		return k.Kind(), true
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return KindOf(u.Unwrap())
	}
	return 0, false
}

// WithContext returns a copy of e with additional context merged in.
func (e *Error) WithContext(key string, val any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = val
	return &cp
}

package consensus

import "fmt"

// ErrorKind groups error codes into the four propagation classes of §7:
// Transient errors are retried independently by an external layer, Invalid
// inputs are silently dropped, Conflict rejects without state change, and
// Fatal halts the freeze attempt that produced it.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindInvalid   ErrorKind = "invalid"
	KindConflict  ErrorKind = "conflict"
	KindFatal     ErrorKind = "fatal"
)

type ErrorCode string

const (
	ErrIO                ErrorCode = "IO"
	ErrTimeout           ErrorCode = "TIMEOUT"
	ErrSignature         ErrorCode = "INVALID_SIGNATURE"
	ErrTimestamp         ErrorCode = "INVALID_TIMESTAMP"
	ErrTypeForHeight     ErrorCode = "INVALID_TYPE_FOR_HEIGHT"
	ErrPreviousHash      ErrorCode = "INVALID_PREVIOUS_HASH"
	ErrDust              ErrorCode = "INVALID_DUST"
	ErrInsufficientFunds ErrorCode = "INVALID_INSUFFICIENT_FUNDS"
	ErrDuplicate         ErrorCode = "INVALID_DUPLICATE"
	ErrSenderData        ErrorCode = "INVALID_SENDER_DATA"
	ErrCycleDiscontinuity ErrorCode = "INVALID_CYCLE_DISCONTINUITY"
	ErrVoteFlipThrottled ErrorCode = "CONFLICT_VOTE_FLIP_THROTTLED"
	ErrBlockHashConflict ErrorCode = "CONFLICT_BLOCK_EXISTS_DIFFERENT_HASH"
	ErrSupplyInvariant   ErrorCode = "FATAL_SUPPLY_INVARIANT_VIOLATED"
	ErrSnapshotMismatch  ErrorCode = "FATAL_SNAPSHOT_HASH_MISMATCH"
	ErrStoreWrite        ErrorCode = "FATAL_STORE_WRITE_FAILED"
	ErrNegativeBalance   ErrorCode = "FATAL_NEGATIVE_BALANCE"
	ErrParse             ErrorCode = "PARSE"
)

// Error is the sum-typed consensus error used throughout the module. Every
// rejection carries a Kind, which tells the caller how to react (§7), and a
// Code, which names the specific reason for logs and tests.
type Error struct {
	Kind ErrorKind
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Msg)
}

func newErr(kind ErrorKind, code ErrorCode, msg string) error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func invalidErr(code ErrorCode, msg string) error {
	return newErr(KindInvalid, code, msg)
}

func conflictErr(code ErrorCode, msg string) error {
	return newErr(KindConflict, code, msg)
}

func fatalErr(code ErrorCode, msg string) error {
	return newErr(KindFatal, code, msg)
}

// IsFatal reports whether err is a Fatal-kind consensus error: the block
// that caused it must be discarded and the frozen edge must not advance on
// this attempt, without crashing the process (§7).
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e != nil && e.Kind == KindFatal
}

// Code extracts the ErrorCode from err, or "" if err is not a *Error.
func Code(err error) ErrorCode {
	if e, ok := err.(*Error); ok && e != nil {
		return e.Code
	}
	return ""
}

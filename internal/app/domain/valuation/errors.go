package valuation

import "fmt"

// Error is a failure with the stable numeric code the deployed contract
// exposed. Downstream consumers key off the codes, so the numbering must not
// change between releases.
type Error struct {
	Code    uint32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Engine sentinel errors. Codes 100-111 match the contract's error table.
// The contract reused u100 for admin-authorization failures and u106 for both
// directions of an approval-state mismatch; the Go sentinels stay distinct so
// callers can still discriminate with errors.Is while the numeric surface is
// unchanged.
var (
	ErrNotOracle              = &Error{Code: 100, Message: "caller is not the named oracle"}
	ErrNotAuthorized          = &Error{Code: 100, Message: "caller is not the administrator"}
	ErrInvalidSubjectID       = &Error{Code: 101, Message: "subject id must be positive"}
	ErrInvalidPrice           = &Error{Code: 102, Message: "price must be a positive integer"}
	ErrInsufficientOracles    = &Error{Code: 103, Message: "insufficient distinct oracle submissions"}
	ErrConsensusFailed        = &Error{Code: 104, Message: "aggregate oracle weight below threshold"}
	ErrStaleData              = &Error{Code: 105, Message: "submission outside staleness window"}
	ErrOracleNotApproved      = &Error{Code: 106, Message: "oracle is not approved"}
	ErrOracleAlreadyApproved  = &Error{Code: 106, Message: "oracle already approved"}
	ErrMaxOraclesExceeded     = &Error{Code: 107, Message: "approved oracle registry is full"}
	ErrInvalidWeight          = &Error{Code: 108, Message: "weight outside allowed range"}
	ErrValuationNotFound      = &Error{Code: 109, Message: "no valuation published for subject"}
	ErrInvalidTimestamp       = &Error{Code: 110, Message: "submission timestamp is invalid"}
	ErrMaxSubmissionsExceeded = &Error{Code: 111, Message: "oracle submission quota exhausted"}
)

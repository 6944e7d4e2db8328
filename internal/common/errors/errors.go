package errors

import (
	"fmt"
	"time"
)

// ErrorCode is a machine-readable reason code returned to callers.
type ErrorCode string

const (
	// Input errors: the request itself is wrong, retrying is pointless.
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeAmountOutOfRange ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeMalformedProof   ErrorCode = "MALFORMED_PROOF"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"

	// Trust errors: the proof or its issuer failed a trust check.
	ErrCodeUntrustedIssuer   ErrorCode = "UNTRUSTED_ISSUER"
	ErrCodeExpiredTicket     ErrorCode = "EXPIRED_TICKET"
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"
	ErrCodeOracleInactive    ErrorCode = "ORACLE_INACTIVE"
	ErrCodeOracleUnstaked    ErrorCode = "ORACLE_UNSTAKED"
	ErrCodeFraudDetected     ErrorCode = "FRAUD_DETECTED"

	// Rate errors: retry after the window boundary.
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeHarvestTooFrequent ErrorCode = "HARVEST_TOO_FREQUENT"
	ErrCodeClaimTooFrequent   ErrorCode = "CLAIM_TOO_FREQUENT"

	// Consistency errors: the operation aborts without partial mutation.
	ErrCodeArithmeticOverflow  ErrorCode = "ARITHMETIC_OVERFLOW"
	ErrCodeArithmeticUnderflow ErrorCode = "ARITHMETIC_UNDERFLOW"
	ErrCodeInsufficientPool    ErrorCode = "INSUFFICIENT_POOL"
	ErrCodeInsufficientStake   ErrorCode = "INSUFFICIENT_STAKE"
	ErrCodeAlreadyStaking      ErrorCode = "ALREADY_STAKING"
	ErrCodeNoActivePosition    ErrorCode = "NO_ACTIVE_POSITION"

	ErrCodeInsufficientVerification ErrorCode = "INSUFFICIENT_VERIFICATION"
	ErrCodeVerificationTimeout      ErrorCode = "VERIFICATION_TIMEOUT"
	ErrCodeNotFound                 ErrorCode = "NOT_FOUND"
	ErrCodeExternalAPI              ErrorCode = "EXTERNAL_API_ERROR"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// AppError is the structured error returned from every service operation.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRate reports whether the caller should simply wait out a window.
func (e *AppError) IsRate() bool {
	return e.Code == ErrCodeRateLimited ||
		e.Code == ErrCodeHarvestTooFrequent ||
		e.Code == ErrCodeClaimTooFrequent
}

// IsTrust reports whether a proof or issuer failed a trust check.
func (e *AppError) IsTrust() bool {
	switch e.Code {
	case ErrCodeUntrustedIssuer, ErrCodeExpiredTicket, ErrCodeSignatureMismatch,
		ErrCodeOracleInactive, ErrCodeOracleUnstaked, ErrCodeFraudDetected:
		return true
	}
	return false
}

// IsConsistency reports an aborted ledger mutation, surfaced for audit.
func (e *AppError) IsConsistency() bool {
	switch e.Code {
	case ErrCodeArithmeticOverflow, ErrCodeArithmeticUnderflow,
		ErrCodeInsufficientPool, ErrCodeInsufficientStake:
		return true
	}
	return false
}

// WithDetail attaches a detail value for the caller.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRetryAfter attaches the wait derived from a window boundary.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	if d < 0 {
		d = 0
	}
	return e.WithDetail("retry_after", d.String())
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new application error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an underlying error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// AsAppError casts err to *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}

// CodeOf returns the reason code of err, or INTERNAL_ERROR for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

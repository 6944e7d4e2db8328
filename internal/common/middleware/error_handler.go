package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/logger"
)

// ErrorHandler recovers from panics and renders them as internal errors.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		SendError(c, appErr)
	})
}

// RequestID propagates or assigns an X-Request-ID for every request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

// SendError renders err with the status code implied by its reason code.
// Rate errors additionally surface Retry-After so well-behaved clients
// can back off without parsing the body.
func SendError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Unexpected error")
	}

	requestID := getRequestID(c)
	statusCode := httpStatusFor(appErr)

	if appErr.IsRate() {
		if ra, ok := appErr.Details["retry_after"]; ok {
			if s, ok := ra.(string); ok {
				if d, err := time.ParseDuration(s); err == nil {
					c.Header("Retry-After", fmt.Sprintf("%d", int(d.Seconds())+1))
				}
			}
		}
	}

	logError(appErr, c, statusCode)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

func httpStatusFor(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest,
		errors.ErrCodeAmountOutOfRange, errors.ErrCodeMalformedProof:
		return http.StatusBadRequest
	case errors.ErrCodeExpiredTicket, errors.ErrCodeSignatureMismatch,
		errors.ErrCodeUntrustedIssuer:
		return http.StatusUnauthorized
	case errors.ErrCodeOracleInactive, errors.ErrCodeOracleUnstaked,
		errors.ErrCodeFraudDetected, errors.ErrCodeInsufficientVerification:
		return http.StatusForbidden
	case errors.ErrCodeNotFound, errors.ErrCodeNoActivePosition:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyStaking:
		return http.StatusConflict
	case errors.ErrCodeRateLimited, errors.ErrCodeHarvestTooFrequent,
		errors.ErrCodeClaimTooFrequent:
		return http.StatusTooManyRequests
	case errors.ErrCodeArithmeticOverflow, errors.ErrCodeArithmeticUnderflow,
		errors.ErrCodeInsufficientPool, errors.ErrCodeInsufficientStake:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeVerificationTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func logError(appErr *errors.AppError, c *gin.Context, statusCode int) {
	ev := logger.Info()
	switch {
	case statusCode >= http.StatusInternalServerError:
		ev = logger.Error()
	case appErr.IsTrust() || appErr.IsConsistency():
		ev = logger.Warn()
	}

	ev = ev.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message).
		Int("status", statusCode)

	if len(appErr.Details) > 0 {
		ev = ev.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		ev = ev.Err(appErr.Cause)
	}

	ev.Msg("Request failed")
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}

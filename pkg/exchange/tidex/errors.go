package tidex

import (
	"net/http"
	"strings"

	"tidexgo/pkg/core"
	"tidexgo/pkg/safe"
)

// Classify inspects a decoded response before any parser runs. It returns
// nil for a successful envelope and for bodies that carry no success field;
// the latter are left to HTTPError. A failed envelope is matched against
// the exact table by code, then by message, then against the broad rules,
// and falls back to ErrorTypeExchange. The error message is the venue id
// followed by the raw body.
func Classify(describe *Describe, status int, body []byte, decoded any) error {
	envelope, ok := decoded.(map[string]any)
	if !ok || !safe.Has(envelope, "success") {
		return nil
	}
	if succeeded(envelope) {
		return nil
	}

	code := safe.String(envelope, "code", "")
	message := safe.String(envelope, "message", "")
	feedback := describe.ID + " " + string(body)

	errType := matchExceptions(describe.Exceptions, code, message)
	return core.NewExchangeErrorWithCode(describe.ID, errType, status, code, feedback).WithRaw(decoded)
}

func matchExceptions(ex Exceptions, code, message string) core.ErrorType {
	if code != "" {
		if t, ok := ex.Exact[code]; ok {
			return t
		}
	}
	if message != "" {
		if t, ok := ex.Exact[message]; ok {
			return t
		}
		for _, rule := range ex.Broad {
			if rule.Substring != "" && strings.Contains(message, rule.Substring) {
				return rule.Type
			}
		}
	}
	return core.ErrorTypeExchange
}

// succeeded normalizes the success field: booleans as-is, numbers are true
// when non-zero, strings only for "true" and "1".
func succeeded(envelope map[string]any) bool {
	if s, ok := envelope["success"].(string); ok {
		return s == "true" || s == "1"
	}
	b := safe.Bool(envelope, "success")
	return b != nil && *b
}

// HTTPError maps an unclassified non-2xx status onto an error type. It
// returns nil below 400.
func HTTPError(describe *Describe, status int, body []byte) error {
	if status < http.StatusBadRequest {
		return nil
	}
	errType := statusErrorType(status)
	message := describe.ID + " " + http.StatusText(status)
	if len(body) > 0 {
		message = describe.ID + " " + string(body)
	}
	return core.NewExchangeError(describe.ID, errType, status, message).WithCode(core.DefaultCode(errType))
}

func statusErrorType(status int) core.ErrorType {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return core.ErrorTypeAuthentication
	case status == http.StatusNotFound:
		return core.ErrorTypeNotFound
	case status == http.StatusTeapot, status == http.StatusTooManyRequests:
		return core.ErrorTypeRateLimit
	case status >= http.StatusInternalServerError:
		return core.ErrorTypeServerError
	default:
		return core.ErrorTypeBadRequest
	}
}

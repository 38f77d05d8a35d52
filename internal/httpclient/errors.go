package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindServerError  Kind = "server_error"
	KindNetwork      Kind = "network_error"
	KindUnknown      Kind = "unknown"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	ErrServerError  = errors.New("server error")
	ErrNetwork      = errors.New("network failure")
	ErrUnknown      = errors.New("unexpected response")

	// ErrSessionExpired wraps the original 401 when the refresh could not recover it.
	ErrSessionExpired = errors.New("session expired")
	ErrEmptyBody      = errors.New("empty response body")
)

var kindErrors = map[Kind]error{
	KindBadRequest:   ErrBadRequest,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindServerError:  ErrServerError,
	KindNetwork:      ErrNetwork,
	KindUnknown:      ErrUnknown,
}

// APIError is a classified failure of an outbound request.
type APIError struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	Detail string
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status=%d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports a 401-classified failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func classify(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= http.StatusInternalServerError:
		return KindServerError
	default:
		return KindUnknown
	}
}

// Message is the user-facing text shown for a failure of kind k.
func Message(k Kind, detail string) string {
	switch k {
	case KindBadRequest:
		if detail != "" {
			return detail
		}
		return "Datos inválidos"
	case KindUnauthorized:
		return "Sesión expirada, inicia sesión nuevamente"
	case KindForbidden:
		return "No tienes permisos para realizar esta acción"
	case KindNotFound:
		return "Recurso no encontrado"
	case KindServerError:
		return "Error interno del servidor"
	case KindNetwork:
		return "Error de conexión"
	default:
		return "Error inesperado"
	}
}

// Detail extracts a human message from a backend error body: "detail", then
// "error", then "non_field_errors", then field errors as "field: message".
func Detail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error"} {
		if s := firstString(doc[key]); s != "" {
			return s
		}
	}
	if s := firstString(doc["non_field_errors"]); s != "" {
		return s
	}

	fields := make([]string, 0, len(doc))
	for k := range doc {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		if s := firstString(doc[k]); s != "" {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, "; ")
}

func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

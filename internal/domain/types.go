package domain

import (
	"errors"
	"strings"
)

const (
	FieldPhone   = "phone"
	FieldMessage = "message"
)

// SuccessDetail is the acknowledgment shown after the provider accepted a message.
const SuccessDetail = "WhatsApp message sent successfully!"

var ErrRateLimited = errors.New("too many messages, please try again shortly")

type SendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate reports every missing field at once.
func (r SendRequest) Validate() error {
	var verr ValidationError
	if r.Phone == "" {
		verr.Add(FieldPhone, "The phone field is required.")
	}
	if r.Message == "" {
		verr.Add(FieldMessage, "The message field is required.")
	}
	if verr.Empty() {
		return nil
	}
	return &verr
}

// ValidationError carries field-level messages. It is raised before any
// provider call.
type ValidationError struct {
	Fields map[string]string
	order  []string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.order))
	for _, f := range e.order {
		msgs = append(msgs, e.Fields[f])
	}
	return strings.Join(msgs, " ")
}

// ProviderError is any failure of the remote send, surfaced verbatim.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// SendOutcome is built only through Succeeded or Failed.
type SendOutcome struct {
	OK     bool
	Detail string
	Err    error
}

func Succeeded(detail string) SendOutcome {
	return SendOutcome{OK: true, Detail: detail}
}

func Failed(err error) SendOutcome {
	return SendOutcome{OK: false, Detail: err.Error(), Err: err}
}

// FieldErrors returns the field messages when the outcome failed validation.
func (o SendOutcome) FieldErrors() (map[string]string, bool) {
	var verr *ValidationError
	if errors.As(o.Err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

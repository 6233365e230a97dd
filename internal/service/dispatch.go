package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"wanotif/internal/domain"
	"wanotif/internal/observability"
	"wanotif/internal/providers/twilio"
	"wanotif/internal/util"
)

var tracer = otel.Tracer("wanotif.internal.service.dispatch")

const strictPhoneMessage = "The phone field must be 10 digits without country code."

// Dispatcher runs the send pipeline: validate, build the recipient, call the
// provider once, report the outcome. It is safe for concurrent use.
type Dispatcher struct {
	Sender twilio.Sender
	// From is the sender number in international format, without the channel marker.
	From string
	// Strict rejects anything but a bare 10-digit number before dispatch.
	Strict bool

	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
	IDGen   func() string
}

func (d *Dispatcher) Send(ctx context.Context, req domain.SendRequest) domain.SendOutcome {
	id := d.newID()

	if err := d.validate(req); err != nil {
		observability.Sends.WithLabelValues(observability.ResultValidation).Inc()
		slog.Info("whatsapp send rejected", "dispatch_id", id, "err", err)
		return domain.Failed(err)
	}

	to := util.NormalizeRecipient(req.Phone)
	from := util.ChannelAddress(d.From)

	if d.Limiter != nil && !d.Limiter.Allow() {
		observability.Sends.WithLabelValues(observability.ResultRateLimited).Inc()
		slog.Warn("whatsapp send rate limited", "dispatch_id", id, "to", to)
		return domain.Failed(&domain.ProviderError{Err: domain.ErrRateLimited})
	}

	ctx, span := tracer.Start(ctx, "whatsapp.create_message")
	defer span.End()
	span.SetAttributes(
		attribute.String("wanotif.dispatch_id", id),
		attribute.String("wanotif.to", to),
	)

	msg, err := d.createMessage(ctx, twilio.CreateMessageRequest{
		To:   to,
		From: from,
		Body: req.Message,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		result := observability.ResultProvider
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = observability.ResultBreakerOpen
		}
		observability.Sends.WithLabelValues(result).Inc()
		slog.Error("whatsapp send failed", "dispatch_id", id, "to", to, "result", result, "err", err)
		return domain.Failed(&domain.ProviderError{Err: err})
	}

	observability.Sends.WithLabelValues(observability.ResultOK).Inc()
	slog.Info("whatsapp message sent", "dispatch_id", id, "to", to, "sid", msg.Sid, "status", msg.Status)
	return domain.Succeeded(domain.SuccessDetail)
}

func (d *Dispatcher) validate(req domain.SendRequest) error {
	err := req.Validate()
	if !d.Strict || req.Phone == "" || util.StrictPhone(req.Phone) {
		return err
	}

	verr := &domain.ValidationError{}
	errors.As(err, &verr)
	verr.Add(domain.FieldPhone, strictPhoneMessage)
	return verr
}

func (d *Dispatcher) createMessage(ctx context.Context, req twilio.CreateMessageRequest) (twilio.Message, error) {
	call := func() (any, error) {
		start := time.Now()
		defer func() { observability.ProviderLatency.Observe(time.Since(start).Seconds()) }()
		return d.Sender.CreateMessage(ctx, req)
	}

	if d.Breaker == nil {
		res, err := call()
		if err != nil {
			return twilio.Message{}, err
		}
		return res.(twilio.Message), nil
	}

	res, err := d.Breaker.Execute(call)
	if err != nil {
		return twilio.Message{}, err
	}
	return res.(twilio.Message), nil
}

func (d *Dispatcher) newID() string {
	if d.IDGen != nil {
		return d.IDGen()
	}
	return util.NewDispatchID()
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"wanotif/internal/config"
	"wanotif/internal/httpserver"
	"wanotif/internal/logging"
	"wanotif/internal/observability"
	"wanotif/internal/providers/twilio"
	"wanotif/internal/service"
	"wanotif/internal/util"
)

func main() {
	cfg := config.LoadWeb()
	logging.Init("web", cfg.LogFormat, cfg.LogLevel)

	observability.Register(prometheus.DefaultRegisterer)

	sender, err := newSender(cfg)
	if err != nil {
		slog.Error("web provider init failed", "err", err)
		os.Exit(1)
	}

	dispatcher := &service.Dispatcher{
		Sender:  sender,
		From:    cfg.TwilioWhatsAppFrom,
		Strict:  cfg.RecipientStrict,
		Limiter: newLimiter(cfg),
		Breaker: newBreaker(cfg),
		IDGen:   util.NewDispatchID,
	}

	s := httpserver.New()
	httpserver.Instrument(s.Mux, httpserver.HTTPMetrics{
		Requests: observability.HTTPRequests,
		Duration: observability.HTTPDuration,
	})
	wa := &httpserver.WhatsApp{
		Dispatcher: dispatcher,
		Flash:      httpserver.NewFlashStore(cfg.AppKey),
	}
	wa.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, readyChecks(cfg, sender)...)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.Logging(s.Mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("web shutdown", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("web listening", "port", cfg.Port, "transport", cfg.TwilioTransport, "strict_recipient", cfg.RecipientStrict)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("web server failed", "err", err)
		os.Exit(1)
	}
}

func newSender(cfg config.WebConfig) (twilio.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TwilioTransport)) {
	case "", "rest":
		return &twilio.Client{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			HTTP:       &http.Client{Timeout: cfg.TwilioHTTPTimeout},
			BaseURL:    cfg.TwilioBaseURL,
		}, nil
	case "sdk":
		return twilio.NewSDKClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken), nil
	default:
		return nil, errors.New("unknown TWILIO_TRANSPORT: " + cfg.TwilioTransport)
	}
}

func readyChecks(cfg config.WebConfig, sender twilio.Sender) []httpserver.ReadyCheck {
	checks := []httpserver.ReadyCheck{{
		Name: "sender",
		Check: func(context.Context) error {
			if !strings.HasPrefix(cfg.TwilioWhatsAppFrom, "+") {
				return errors.New("TWILIO_WHATSAPP_FROM must be in +<country><number> form")
			}
			return nil
		},
	}}
	if r, ok := sender.(twilio.Readier); ok {
		checks = append(checks, httpserver.ReadyCheck{Name: "provider", Check: r.Ready})
	}
	return checks
}

func newLimiter(cfg config.WebConfig) *rate.Limiter {
	if cfg.SendRPS <= 0 {
		return nil
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.SendRPS), burst)
}

func newBreaker(cfg config.WebConfig) *gobreaker.CircuitBreaker {
	if cfg.BreakerFailures == 0 {
		return nil
	}
	return service.NewBreaker("twilio", cfg.BreakerFailures, cfg.BreakerOpenTimeout)
}

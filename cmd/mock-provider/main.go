package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wanotif/internal/config"
	"wanotif/internal/httpserver"
	"wanotif/internal/logging"
)

func main() {
	cfg := config.LoadMockProvider()
	logging.Init("mock-provider", cfg.LogFormat, "info")

	s := newServer(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))

	router := mux.NewRouter()
	s.register(router)

	slog.Info("mock provider listening", "port", cfg.Port, "mode", s.mode, "outcomes", strings.Join(s.outcomes, ","))
	if err := http.ListenAndServe(":"+cfg.Port, httpserver.Logging(router)); err != nil {
		slog.Error("mock provider server failed", "err", err)
		os.Exit(1)
	}
}

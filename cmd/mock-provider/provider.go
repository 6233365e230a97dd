package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"wanotif/internal/config"
	"wanotif/internal/util"
)

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type message struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
	Body   string `json:"body"`
}

// server mimics POST /2010-04-01/Accounts/{AccountSid}/Messages.json for
// WhatsApp senders.
type server struct {
	accountSID string
	authToken  string
	mode       string
	outcomes   []string
	delay      time.Duration

	idx   uint64
	sids  uint64
	rngMu sync.Mutex
	rng   *rand.Rand
}

func newServer(cfg config.MockProviderConfig, rng *rand.Rand) *server {
	return &server{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		mode:       strings.ToLower(strings.TrimSpace(cfg.OutcomeMode)),
		outcomes:   parseCSV(cfg.OutcomesRaw),
		delay:      time.Duration(cfg.DelayMs) * time.Millisecond,
		rng:        rng,
	}
}

func (s *server) register(r *mux.Router) {
	r.HandleFunc("/2010-04-01/Accounts/{AccountSid}/Messages.json", s.handleCreate).Methods(http.MethodPost)
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.accountSID || pass != s.authToken || mux.Vars(r)["AccountSid"] != s.accountSID {
		writeError(w, http.StatusUnauthorized, 20003, "Authenticate")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, 21620, "Invalid form data")
		return
	}

	to, from, body := r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
	switch {
	case to == "":
		writeError(w, http.StatusBadRequest, 21604, "A 'To' phone number is required.")
		return
	case from == "":
		writeError(w, http.StatusBadRequest, 21603, "A 'From' phone number is required.")
		return
	case body == "":
		writeError(w, http.StatusBadRequest, 21602, "Message body is required.")
		return
	case !strings.HasPrefix(from, util.WhatsAppChannel):
		writeError(w, http.StatusBadRequest, 63007, "Twilio could not find a Channel with the specified From address")
		return
	case !validWhatsAppNumber(to):
		writeError(w, http.StatusBadRequest, 21211, fmt.Sprintf("Invalid 'To' Phone Number: %s", to))
		return
	}

	if s.delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.delay):
		}
	}

	switch s.nextOutcome() {
	case "ok", "success":
		sid := fmt.Sprintf("SM%032d", atomic.AddUint64(&s.sids, 1))
		writeJSON(w, http.StatusCreated, message{Sid: sid, Status: "queued", To: to, From: from, Body: body})
	case "auth", "401":
		writeError(w, http.StatusUnauthorized, 20003, "Authenticate")
	case "rate_limit", "429":
		writeError(w, http.StatusTooManyRequests, 20429, "Too Many Requests")
	case "balance":
		writeError(w, http.StatusBadRequest, 21606, "Account balance is insufficient to send this message")
	case "server_error", "500":
		writeError(w, http.StatusInternalServerError, 20500, "Internal Server Error")
	default:
		writeError(w, http.StatusInternalServerError, 30008, "Unknown error")
	}
}

func (s *server) nextOutcome() string {
	switch s.mode {
	case "round_robin":
		idx := atomic.AddUint64(&s.idx, 1) - 1
		return s.outcomes[int(idx%uint64(len(s.outcomes)))]
	case "random":
		s.rngMu.Lock()
		i := s.rng.Intn(len(s.outcomes))
		s.rngMu.Unlock()
		return s.outcomes[i]
	default:
		return s.outcomes[0]
	}
}

// validWhatsAppNumber accepts "whatsapp:+<digits>" with E.164 length.
func validWhatsAppNumber(addr string) bool {
	num, ok := strings.CutPrefix(addr, util.WhatsAppChannel+"+")
	if !ok || len(num) < 8 || len(num) > 15 {
		return false
	}
	for i := 0; i < len(num); i++ {
		if num[i] < '0' || num[i] > '9' {
			return false
		}
	}
	return true
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, apiError{
		Code:     code,
		Message:  msg,
		MoreInfo: fmt.Sprintf("https://www.twilio.com/docs/errors/%d", code),
		Status:   status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{"ok"}
	}
	return out
}

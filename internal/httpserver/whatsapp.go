package httpserver

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"wanotif/internal/domain"
)

const (
	RouteForm = "whatsapp"
	RouteSend = "whatsapp.post"
)

//go:embed templates/whatsapp.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/whatsapp.html"))

type Dispatcher interface {
	Send(ctx context.Context, req domain.SendRequest) domain.SendOutcome
}

// WhatsApp serves the send form and turns dispatch outcomes into flash
// messages on a redirect back to it.
type WhatsApp struct {
	Dispatcher Dispatcher
	Flash      *FlashStore

	router *mux.Router
}

type formView struct {
	Action string
	Flash  Flash
}

func (h *WhatsApp) Register(r *mux.Router) {
	h.router = r
	r.HandleFunc("/", h.handleWelcome).Methods(http.MethodGet)
	r.HandleFunc("/whatsapp", h.handleForm).Methods(http.MethodGet).Name(RouteForm)
	r.HandleFunc("/whatsapp", h.handleSend).Methods(http.MethodPost).Name(RouteSend)
}

func (h *WhatsApp) handleWelcome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.routeURL(RouteForm), http.StatusFound)
}

func (h *WhatsApp) handleForm(w http.ResponseWriter, r *http.Request) {
	view := formView{
		Action: h.routeURL(RouteSend),
		Flash:  h.Flash.Pop(w, r),
	}

	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		slog.Error("render whatsapp form failed", "err", err)
		http.Error(w, ErrRender, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *WhatsApp) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}
	req := domain.SendRequest{
		Phone:   strings.TrimSpace(r.PostForm.Get(domain.FieldPhone)),
		Message: strings.TrimSpace(r.PostForm.Get(domain.FieldMessage)),
	}

	// An in-flight send is never aborted, even if the browser goes away.
	out := h.Dispatcher.Send(context.WithoutCancel(r.Context()), req)

	if err := h.Flash.Set(w, flashFor(out, req)); err != nil {
		slog.Error("set flash failed", "err", err)
	}
	http.Redirect(w, r, h.routeURL(RouteForm), http.StatusSeeOther)
}

func flashFor(out domain.SendOutcome, req domain.SendRequest) Flash {
	if out.OK {
		return Flash{Success: out.Detail}
	}
	if fields, ok := out.FieldErrors(); ok {
		return Flash{
			Errors: fields,
			Old: map[string]string{
				domain.FieldPhone:   req.Phone,
				domain.FieldMessage: req.Message,
			},
		}
	}
	return Flash{Error: out.Detail}
}

func (h *WhatsApp) routeURL(name string) string {
	if h.router != nil {
		if route := h.router.Get(name); route != nil {
			if u, err := route.URL(); err == nil {
				return u.String()
			}
		}
	}
	return "/whatsapp"
}

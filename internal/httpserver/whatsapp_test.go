package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanotif/internal/domain"
	"wanotif/internal/providers/twilio"
	"wanotif/internal/service"
)

type recordingSender struct {
	mu    sync.Mutex
	calls []twilio.CreateMessageRequest
	err   error
}

func (s *recordingSender) CreateMessage(ctx context.Context, req twilio.CreateMessageRequest) (twilio.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return twilio.Message{Sid: "SM1"}, s.err
}

type cancelCheckingDispatcher struct {
	ctxErr error
}

func (d *cancelCheckingDispatcher) Send(ctx context.Context, req domain.SendRequest) domain.SendOutcome {
	d.ctxErr = ctx.Err()
	return domain.Succeeded(domain.SuccessDetail)
}

func newTestServer(d Dispatcher) http.Handler {
	s := New()
	h := &WhatsApp{Dispatcher: d, Flash: NewFlashStore("test-key")}
	h.Register(s.Mux)
	return s.Mux
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// followRedirect replays the flash cookie on the redirect target.
func followRedirect(t *testing.T, h http.Handler, prev *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, prev.Code)
	req := httptest.NewRequest(http.MethodGet, prev.Header().Get("Location"), nil)
	for _, c := range prev.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFormRenders(t *testing.T) {
	h := newTestServer(&service.Dispatcher{Sender: &recordingSender{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatsapp", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/whatsapp"`)
	assert.Contains(t, body, `name="phone"`)
	assert.Contains(t, body, `maxlength="10"`)
	assert.Contains(t, body, `name="message"`)
	assert.NotContains(t, body, "alert-success")
	assert.NotContains(t, body, "alert-danger")
}

func TestWelcomeRedirectsToForm(t *testing.T) {
	h := newTestServer(&service.Dispatcher{Sender: &recordingSender{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/whatsapp", rec.Header().Get("Location"))
}

func TestSendSuccessFlash(t *testing.T) {
	sender := &recordingSender{}
	h := newTestServer(&service.Dispatcher{Sender: sender, From: "+14155238886"})

	rec := postForm(t, h, url.Values{"phone": {"9876543210"}, "message": {"Hello"}})
	assert.Equal(t, "/whatsapp", rec.Header().Get("Location"))

	page := followRedirect(t, h, rec)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "alert-success")
	assert.Contains(t, page.Body.String(), "WhatsApp message sent successfully!")

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "whatsapp:+919876543210", sender.calls[0].To)
	assert.Equal(t, "whatsapp:+14155238886", sender.calls[0].From)
	assert.Equal(t, "Hello", sender.calls[0].Body)
}

func TestSendProviderErrorFlash(t *testing.T) {
	sender := &recordingSender{err: errors.New("Authenticate")}
	h := newTestServer(&service.Dispatcher{Sender: sender, From: "+14155238886"})

	rec := postForm(t, h, url.Values{"phone": {"9876543210"}, "message": {"Hi"}})
	page := followRedirect(t, h, rec)

	assert.Contains(t, page.Body.String(), "alert-danger")
	assert.Contains(t, page.Body.String(), "Authenticate")
	assert.NotContains(t, page.Body.String(), "is-invalid")
}

func TestSendValidationErrorFlash(t *testing.T) {
	sender := &recordingSender{}
	h := newTestServer(&service.Dispatcher{Sender: sender, From: "+14155238886"})

	rec := postForm(t, h, url.Values{"phone": {"   "}, "message": {"Hi <b>there</b>"}})
	page := followRedirect(t, h, rec)

	body := page.Body.String()
	assert.Contains(t, body, "The phone field is required.")
	assert.Contains(t, body, "is-invalid")
	assert.NotContains(t, body, "alert-danger")
	// old input is re-populated and escaped
	assert.Contains(t, body, "Hi &lt;b&gt;there&lt;/b&gt;")
	assert.Empty(t, sender.calls)
}

func TestFlashIsShownOnce(t *testing.T) {
	h := newTestServer(&service.Dispatcher{Sender: &recordingSender{}, From: "+1"})

	rec := postForm(t, h, url.Values{"phone": {"9876543210"}, "message": {"Hello"}})
	page := followRedirect(t, h, rec)
	require.Contains(t, page.Body.String(), "alert-success")

	var cleared bool
	for _, c := range page.Result().Cookies() {
		if c.Name == defaultFlashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected flash cookie to be cleared after display")
}

func TestSendDetachesFromClientCancel(t *testing.T) {
	d := &cancelCheckingDispatcher{}
	h := newTestServer(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader("phone=9876543210&message=Hi")).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.NoError(t, d.ctxErr)
}

func TestSendBadForm(t *testing.T) {
	h := newTestServer(&service.Dispatcher{Sender: &recordingSender{}})

	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader("phone=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(&service.Dispatcher{Sender: &recordingSender{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/whatsapp", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFlashFor(t *testing.T) {
	req := domain.SendRequest{Phone: "", Message: "Hi"}

	assert.Equal(t, Flash{Success: "ok"}, flashFor(domain.Succeeded("ok"), req))
	assert.Equal(t, Flash{Error: "boom"}, flashFor(domain.Failed(&domain.ProviderError{Err: errors.New("boom")}), req))

	f := flashFor(domain.Failed(req.Validate()), req)
	assert.Empty(t, f.Error)
	assert.Equal(t, "The phone field is required.", f.Errors[domain.FieldPhone])
	assert.Equal(t, "Hi", f.Old[domain.FieldMessage])
}

package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLivenessEndpoint(t *testing.T) {
	t.Parallel()

	s := NewWebhookServer(nil, "sekret", "https://bot.example.com", ":0")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != livenessMessage {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhookAcceptsUpdate(t *testing.T) {
	t.Parallel()

	s := NewWebhookServer(nil, "sekret", "https://bot.example.com", ":0")
	payload := `{"update_id":42,"message":{"message_id":7,"date":1700000000,"text":"hello","chat":{"id":100},"from":{"id":1}}}`

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sekret", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("unexpected acknowledgement %q", rec.Body.String())
	}

	select {
	case u := <-s.Updates():
		if u.UpdateID != 42 || u.Message == nil || u.Message.Text != "hello" {
			t.Fatalf("unexpected update %#v", u)
		}
	default:
		t.Fatalf("update was not queued")
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	s := NewWebhookServer(nil, "sekret", "https://bot.example.com", ":0")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/guess", strings.NewReader("{}")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for wrong secret, got %d", rec.Code)
	}
	select {
	case <-s.Updates():
		t.Fatalf("forged update must not be queued")
	default:
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	s := NewWebhookServer(nil, "sekret", "https://bot.example.com", ":0")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sekret", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", rec.Code)
	}
}

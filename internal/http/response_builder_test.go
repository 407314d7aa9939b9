package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerFormReset("2024-06-15").
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Incasso salvato").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	var events map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trigger), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{EventFormReset, EventLedgerRefresh, EventNotification} {
		if _, ok := events[name]; !ok {
			t.Errorf("HX-Trigger missing %q: %s", name, trigger)
		}
	}

	var reset map[string]string
	if err := json.Unmarshal(events[EventFormReset], &reset); err != nil {
		t.Fatalf("form:reset payload: %v", err)
	}
	if reset["date"] != "2024-06-15" || reset["payment_type"] != "cash" {
		t.Errorf("form:reset payload = %v", reset)
	}

	var notif struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(events[EventNotification], &notif); err != nil {
		t.Fatalf("notification payload: %v", err)
	}
	if notif.Type != "success" || notif.Message != "Incasso salvato" || notif.Duration != 3000 {
		t.Errorf("notification = %+v", notif)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Write(w)

	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want %q", got, "value")
	}
}

func TestHTMXResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().JSON(map[string]int{"a": 1}).Write(w)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"a":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	NewHTMXResponse().JSON(make(chan int)).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("unencodable value: status = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name string
		b    *HTMXResponseBuilder
		code int
	}{
		{"BadRequest", BadRequestError("<b>oops</b>"), http.StatusBadRequest},
		{"Unprocessable", UnprocessableEntityError("<b>oops</b>"), http.StatusUnprocessableEntity},
		{"NotFound", NotFoundError("<b>oops</b>"), http.StatusNotFound},
		{"Internal", InternalServerError("<b>oops</b>"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)

			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if strings.Contains(w.Body.String(), "<b>") {
				t.Errorf("message not escaped: %s", w.Body.String())
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("missing error notification: %s", w.Header().Get("HX-Trigger"))
			}
		})
	}
}

func TestHTMXResponseBuilder_TriggerIsASCII(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().TriggerSuccessNotification("Incasso di € 12,50 salvato, già").Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for i := 0; i < len(trigger); i++ {
		if trigger[i] >= 0x80 {
			t.Fatalf("non-ASCII byte in HX-Trigger: %q", trigger)
		}
	}

	var events map[string]struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trigger), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if got := events[EventNotification].Message; got != "Incasso di € 12,50 salvato, già" {
		t.Errorf("message = %q", got)
	}
}

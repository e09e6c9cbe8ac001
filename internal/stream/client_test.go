package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		case <-timeout:
			t.Fatal("timed out waiting for stream to end")
			return out
		}
	}
}

func TestSubscribe_DeliversDataUntilClose(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [build] step1\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: no-prefix line\n\n")
		fmt.Fprint(w, "data:[build] step2\n\n")
	})

	c := NewClient(Options{BaseURL: srv.URL})
	sub, err := c.Subscribe(context.Background(), "7")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	got := collect(t, sub.Messages())
	want := []string{"[build] step1", "no-prefix line", "[build] step2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("messages: got %q, want %q", got, want)
	}
	if sub.Err() != nil {
		t.Errorf("clean close should leave no error, got %v", sub.Err())
	}
	r := <-requests
	if got := r.URL.Query().Get("run_id"); got != "7" {
		t.Errorf("run_id: got %q", got)
	}
	if got := r.Header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("Accept: got %q", got)
	}
}

func TestSubscribe_ErrorEventTerminates(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [a] first\n\n")
		fmt.Fprint(w, "event: error\ndata: Failed to fetch logs: 404\n\n")
		fmt.Fprint(w, "data: [a] never delivered\n\n")
	})

	sub, err := NewClient(Options{BaseURL: srv.URL}).Subscribe(context.Background(), "1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	got := collect(t, sub.Messages())
	if len(got) != 1 || got[0] != "[a] first" {
		t.Errorf("messages: got %q", got)
	}
	var streamErr *Error
	if !errors.As(sub.Err(), &streamErr) {
		t.Fatalf("expected *Error, got %v", sub.Err())
	}
	if streamErr.Message != "Failed to fetch logs: 404" {
		t.Errorf("message: got %q", streamErr.Message)
	}
}

func TestSubscribe_NonOKStatus(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := NewClient(Options{BaseURL: srv.URL}).Subscribe(context.Background(), "1")
	var streamErr *Error
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if streamErr.Status != http.StatusBadGateway {
		t.Errorf("status: got %d", streamErr.Status)
	}
}

func TestSubscribe_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(Options{BaseURL: addr}).Subscribe(context.Background(), "1")
	var streamErr *Error
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if streamErr.Err == nil {
		t.Error("transport cause should be kept")
	}
}

func TestSubscription_CloseEndsMessages(t *testing.T) {
	release := make(chan struct{})
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [a] one\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	sub, err := NewClient(Options{BaseURL: srv.URL}).Subscribe(context.Background(), "2")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg != "[a] one" {
			t.Errorf("first message: got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	_ = sub.Close()
	collect(t, sub.Messages())
	if sub.Err() != nil {
		t.Errorf("Close should not surface an error, got %v", sub.Err())
	}
}

func TestParseEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []event
	}{
		{"single", "data: x\n\n", []event{{data: "x"}}},
		{"multi-line data", "data: a\ndata: b\n\n", []event{{data: "a\nb"}}},
		{"named event", "event: error\ndata: boom\n\n", []event{{name: "error", data: "boom"}}},
		{"comment ignored", ": ping\n\ndata: y\n\n", []event{{data: "y"}}},
		{"unterminated final event", "data: tail", []event{{data: "tail"}}},
		{"empty data kept", "data: \n\n", []event{{data: ""}}},
		{"unknown fields ignored", "id: 4\nretry: 10\ndata: z\n\n", []event{{data: "z"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []event
			err := parseEvents(strings.NewReader(tt.input), func(ev event) bool {
				got = append(got, ev)
				return true
			})
			if err != nil {
				t.Fatalf("parseEvents: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("events: got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClient_URL(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://localhost:8000/"})
	if got := c.URL("12 3"); got != "http://localhost:8000/stream/logs?run_id=12+3" {
		t.Errorf("URL: got %q", got)
	}
}

func TestNewClient_DropsTimeout(t *testing.T) {
	shared := &http.Client{Timeout: time.Second}
	c := NewClient(Options{HTTPClient: shared})
	if c.http.Timeout != 0 {
		t.Errorf("stream client timeout: got %v", c.http.Timeout)
	}
	if shared.Timeout != time.Second {
		t.Error("shared client must not be modified")
	}
}

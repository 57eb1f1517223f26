package httpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCallSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("missing header")
		}
		w.Write([]byte(`{"state":"running"}`))
	}))
	defer server.Close()

	resp, err := New().Call(context.Background(), Request{
		URL:        server.URL,
		Headers:    map[string]string{"X-Test": "yes"},
		ExpectJSON: true,
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d", resp.Status)
	}
	if string(resp.Body) != `{"state":"running"}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestCallHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("warming up"))
	}))
	defer server.Close()

	_, err := New().Call(context.Background(), Request{URL: server.URL})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if he.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d", he.Status)
	}
	if !he.IsRetryable() {
		t.Error("503 should be retryable")
	}
	if StatusCode(err) != 503 {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestCallUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New().Call(context.Background(), Request{URL: url})
	if !IsUnreachable(err) {
		t.Fatalf("err = %v, want unreachable", err)
	}
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatal("expected *UnreachableError")
	}
}

func TestCallTimeoutIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	_, err := New().Call(context.Background(), Request{URL: server.URL, Timeout: 20 * time.Millisecond})
	if !IsUnreachable(err) {
		t.Fatalf("err = %v, want unreachable on timeout", err)
	}
}

func TestCallTimeoutOutlastsClientDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("done"))
	}))
	defer server.Close()

	c := NewWithTimeout(100 * time.Millisecond)
	resp, err := c.Call(context.Background(), Request{URL: server.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Call with longer per-call timeout: %v", err)
	}
	if string(resp.Body) != "done" {
		t.Errorf("Body = %q", resp.Body)
	}

	if _, err := c.Call(context.Background(), Request{URL: server.URL}); !IsUnreachable(err) {
		t.Errorf("default timeout: err = %v, want unreachable", err)
	}
}

func TestCallMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "<html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New().Call(context.Background(), Request{URL: server.URL, ExpectJSON: true})
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := New().PostJSON(context.Background(), server.URL, nil, map[string]int{"volume": 80}, &out)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !out.OK {
		t.Error("expected ok=true")
	}
}

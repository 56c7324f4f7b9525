package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"station_name":"Family Radio","now_playing":{"title":"So What","artist":"Miles Davis"},"public_stream_url":"https://cdn.example.net/stream"}`))
	}))
	defer ts.Close()

	st, err := New(ts.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.StationName != "Family Radio" {
		t.Errorf("station_name = %q", st.StationName)
	}
	if got := st.NowPlaying.Text(); got != "So What — Miles Davis" {
		t.Errorf("now playing text = %q", got)
	}
	if st.PublicStreamURL != "https://cdn.example.net/stream" {
		t.Errorf("public_stream_url = %q", st.PublicStreamURL)
	}
}

func TestStatusServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	if _, err := New(ts.URL).Status(context.Background()); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestStatusOmittedFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"station_name":"Family Radio"}`))
	}))
	defer ts.Close()

	st, err := New(ts.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.NowPlaying.Text() != "" {
		t.Errorf("text for absent now_playing = %q, want empty", st.NowPlaying.Text())
	}
	if st.PublicStreamURL != "" {
		t.Errorf("public_stream_url = %q, want empty", st.PublicStreamURL)
	}
}

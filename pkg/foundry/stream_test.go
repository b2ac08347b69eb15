package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}
}

func TestDoStreamDeliversEvents(t *testing.T) {
	server := httptest.NewServer(sseHandler(
		`data: {"content":"Hi"}`,
		`data: {"content":" there"}`,
		`data: [DONE]`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(context.Background(), "/chat", map[string]bool{"stream": true})
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer stream.Close()

	var contents []string
	for event := range stream.Events() {
		if event.Err != nil {
			t.Fatalf("event error = %v", event.Err)
		}
		var chunk struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(event.Data, &chunk); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		contents = append(contents, chunk.Content)
	}

	if got := strings.Join(contents, ""); got != "Hi there" {
		t.Errorf("assembled content = %q, want %q", got, "Hi there")
	}
}

func TestDoStreamMalformedEventContinues(t *testing.T) {
	server := httptest.NewServer(sseHandler(
		`data: {"n":1}`,
		`data: <html>not json</html>`,
		`data: {"n":2}`,
		`data: [DONE]`,
	))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(context.Background(), "/chat", nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer stream.Close()

	var payloads []string
	var decodeErrs int
	for event := range stream.Events() {
		if event.Err != nil {
			var decodeErr *DecodeError
			if !errors.As(event.Err, &decodeErr) {
				t.Fatalf("event error = %v, want *DecodeError", event.Err)
			}
			decodeErrs++
			continue
		}
		payloads = append(payloads, string(event.Data))
	}

	if decodeErrs != 1 {
		t.Errorf("decodeErrs = %d, want 1", decodeErrs)
	}
	want := []string{`{"n":1}`, `{"n":2}`}
	if len(payloads) != len(want) {
		t.Fatalf("payloads = %v, want %v (stream must continue past a bad line)", payloads, want)
	}
	for i := range want {
		if payloads[i] != want[i] {
			t.Errorf("payloads[%d] = %q, want %q", i, payloads[i], want[i])
		}
	}
}

func TestDoStreamRetriesUntilHeaders(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		sseHandler(`data: {"ok":true}`, `data: [DONE]`)(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(context.Background(), "/chat", nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer stream.Close()

	var events int
	for event := range stream.Events() {
		if event.Err != nil {
			t.Fatalf("event error = %v", event.Err)
		}
		events++
	}
	if events != 1 {
		t.Errorf("events = %d, want 1", events)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2 (retry happens before headers succeed)", got)
	}
}

func TestDoStreamFatalStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"Unauthorized","message":"bad credentials"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.DoStream(context.Background(), "/chat", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("DoStream() error = %v, want *APIError", err)
	}
	if apiErr.Code != "Unauthorized" {
		t.Errorf("Code = %q", apiErr.Code)
	}
}

func TestDoStreamContextCancelStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"n\":1}\n\n")
		flusher.Flush()
		// Hold the connection open until the test finishes.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(ctx, "/chat", nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer stream.Close()

	select {
	case event := <-stream.Events():
		if event.Err != nil {
			t.Fatalf("event error = %v", event.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	cancel()
	stream.Close()

	// After cancellation and close the channel drains and closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream channel never closed after cancel")
		}
	}
}

func TestEventStreamCloseUnblocksDecodeGoroutine(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"n\":1}\n\n")
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(context.Background(), "/chat", nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	select {
	case event := <-stream.Events():
		if event.Err != nil {
			t.Fatalf("event error = %v", event.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	// Abandon the stream: Close without cancelling the context and stop
	// receiving. The decode goroutine must exit and close the channel
	// rather than block forever on a send no one reads.
	stream.Close()
	time.Sleep(100 * time.Millisecond)

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Fatal("event delivered after Close; decode goroutine should have exited")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel never closed after Close")
	}
}

func TestEventStreamCloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(sseHandler(`data: [DONE]`))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	stream, err := client.DoStream(context.Background(), "/chat", nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	for range stream.Events() {
	}
	if err := stream.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

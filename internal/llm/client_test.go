package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeChatResponse(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: content}})
}

func TestCompleteSuccess(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be disabled")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		writeChatResponse(w, "analysis text")
	})

	client := NewOllamaClient(srv.URL, "llama3", 0, time.Millisecond)
	got, err := client.Complete(context.Background(), "sys", "user", 512)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "analysis text" {
		t.Errorf("Complete = %q", got)
	}
}

func TestCompleteRetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeChatResponse(w, "recovered")
	})

	client := NewOllamaClient(srv.URL, "llama3", 2, time.Millisecond)
	got, err := client.Complete(context.Background(), "", "user", 512)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("Complete = %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestCompleteExhaustedRetries(t *testing.T) {
	var calls int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "broken", http.StatusInternalServerError)
	})

	client := NewOllamaClient(srv.URL, "llama3", 2, time.Millisecond)
	_, err := client.Complete(context.Background(), "", "user", 512)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3 attempts", n)
	}
}

func TestCompleteContextDeadline(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewOllamaClient(srv.URL, "llama3", 2, time.Millisecond)
	_, err := client.Complete(ctx, "", "user", 512)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	client := NewOllamaClient(srv.URL, "llama3", 0, time.Millisecond)
	if _, err := client.Complete(context.Background(), "", "user", 512); err == nil {
		t.Error("expected error for undecodable response body")
	}
}

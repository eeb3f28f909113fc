/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slaterhq/slater/internal/iterctx"
)

func TestChatReturnsFirstChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := c.Chat(context.Background(), "gpt-4.1-mini", []iterctx.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected hello, got %q", out)
	}
}

func TestChatPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Chat(context.Background(), "gpt-4.1-mini", nil); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing APIKey")
	}
}

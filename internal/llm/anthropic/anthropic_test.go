package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cortexhq/cortex/internal/llm"
)

func TestComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "sk-ant" {
			t.Errorf("x-api-key = %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v == "" {
			t.Error("anthropic-version header missing")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"text": "the reply"}},
			"model":       "claude-sonnet",
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 7, "output_tokens": 3},
		})
	}))
	defer srv.Close()

	c := New("sk-ant", "claude-sonnet", srv.URL)
	resp, err := c.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "question"}},
	}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "the reply" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
	if gotBody["system"] != "sys" {
		t.Errorf("system = %v (the Messages API takes system as a top-level field)", gotBody["system"])
	}
}

func TestComplete_ErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("sk-ant", "claude-sonnet", srv.URL)
	_, err := c.Complete(context.Background(), &llm.Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status: %q", err.Error())
	}
}

func TestEmbed_Unsupported(t *testing.T) {
	c := New("sk-ant", "claude-sonnet", "")
	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("Embed should fail, anthropic has no embeddings endpoint")
	}
}

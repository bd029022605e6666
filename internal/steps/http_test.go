package steps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpStep(config map[string]any) Input {
	return Input{
		Step: &schema.WorkflowStep{ID: "call", Type: schema.StepTypeHTTPRequest, Name: "Call API", Config: config},
		Data: map[string]any{"id": 7.0, "user": map[string]any{"name": "Ana"}},
	}
}

func TestHTTPRequest_GET_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/7", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"greeting": "hello", "count": 42})
	}))
	defer srv.Close()

	h := NewHTTPRequestHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), httpStep(map[string]any{
		"url":     srv.URL + "/users/${{ $.id }}",
		"headers": map[string]any{"X-Token": "secret"},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"greeting": "hello", "count": 42.0}, out)
}

func TestHTTPRequest_POST_JSONBody(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	h := NewHTTPRequestHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), httpStep(map[string]any{
		"url":    srv.URL,
		"method": "post",
		"body":   map[string]any{"name": "${{ $.user.name }}", "source": "flowengine"},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, out)
	assert.Equal(t, map[string]any{"name": "Ana", "source": "flowengine"}, received)
}

func TestHTTPRequest_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"db down"}`)
	}))
	defer srv.Close()

	h := NewHTTPRequestHandler(HTTPConfig{})
	_, err := h.Execute(context.Background(), httpStep(map[string]any{"url": srv.URL}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	var flowErr *schema.Error
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, 500, flowErr.Details["status"])
	assert.Equal(t, map[string]any{"error": "db down"}, flowErr.Details["body"])
}

func TestHTTPRequest_FullResponseAndTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Request-Id", "abc")
		io.WriteString(w, "pong")
	}))
	defer srv.Close()

	h := NewHTTPRequestHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), httpStep(map[string]any{
		"url":          srv.URL,
		"fullResponse": true,
	}))
	require.NoError(t, err)

	resp := out.(map[string]any)
	assert.Equal(t, 200, resp["status"])
	assert.Equal(t, "pong", resp["body"])
	assert.Equal(t, "abc", resp["headers"].(map[string]any)["X-Request-Id"])
}

func TestHTTPRequest_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	h := NewHTTPRequestHandler(HTTPConfig{})
	_, err := h.Execute(context.Background(), httpStep(map[string]any{
		"url":     srv.URL,
		"timeout": 50,
	}))
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExecution))
}

func TestHTTPRequest_Validate(t *testing.T) {
	h := NewHTTPRequestHandler(HTTPConfig{})

	assert.Error(t, h.Validate(map[string]any{}))
	assert.Error(t, h.Validate(map[string]any{"url": "ftp://example.com"}))
	assert.NoError(t, h.Validate(map[string]any{"url": "https://example.com/hook"}))
	assert.NoError(t, h.Validate(map[string]any{"url": "${{ $.callback }}"}))

	_, err := h.Execute(context.Background(), httpStep(map[string]any{"url": "${{ $.missing }}"}))
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

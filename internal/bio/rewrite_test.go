package bio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T, status int, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         DefaultModel,
			"stop_reason":   "end_turn",
			"content":       []map[string]any{{"type": "text", "text": reply}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
			"stop_sequence": nil,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRewrite(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, `"Builds playful tools for curious people"`)
	r := NewAnthropic("key", "", option.WithBaseURL(srv.URL))

	out, err := r.Rewrite(context.Background(), "Ada", "software person")
	require.NoError(t, err)
	assert.Equal(t, "Builds playful tools for curious people", out)
	assert.Equal(t, DefaultModel, (*got)["model"])
}

func TestRewriteErrors(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusUnauthorized, "")
	r := NewAnthropic("bad", "", option.WithBaseURL(srv.URL))

	_, err := r.Rewrite(context.Background(), "Ada", "x")
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))

	_, err = r.Rewrite(context.Background(), "Ada", "   ")
	assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lehigh-university-libraries/medreport/internal/providers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const completion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "qwen2.5-7b-instruct",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "{\"patient_name\":\"Jane Doe\"}"}
	}]
}`

func newServer(t *testing.T, got *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completion))
		case "/v1/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[
				{"id":"qwen2.5-7b-instruct","object":"model","created":0,"owned_by":"organization_owner"},
				{"id":"gemma-3-12b-it","object":"model","created":0,"owned_by":"organization_owner"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestChatRequestsJSONSchema(t *testing.T) {
	var got map[string]any
	server := newServer(t, &got)
	defer server.Close()

	schema := map[string]any{"type": "object", "required": []any{"patient_name"}}

	o := New(server.URL+"/v1", server.Client())
	content, err := o.Chat(context.Background(), providers.Config{
		Model:  "qwen2.5-7b-instruct",
		Prompt: "extract this",
		Schema: schema,
		Format: providers.FormatSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"patient_name":"Jane Doe"}`, content)

	assert.Equal(t, "qwen2.5-7b-instruct", got["model"])
	assert.Equal(t, float64(0), got["temperature"])

	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing: %#v", got)
	assert.Equal(t, "json_schema", rf["type"])

	js, ok := rf["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, schemaName, js["name"])
	assert.Equal(t, schema, js["schema"])
	assert.Equal(t, false, js["strict"])
}

func TestChatJSONModeRequestsJSONObject(t *testing.T) {
	var got map[string]any
	server := newServer(t, &got)
	defer server.Close()

	o := New(server.URL+"/v1/", server.Client())
	_, err := o.Chat(context.Background(), providers.Config{
		Model:  "qwen2.5-7b-instruct",
		Prompt: "extract this",
		Format: providers.FormatJSON,
	})
	require.NoError(t, err)

	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	o := New(server.URL+"/v1", server.Client())
	_, err := o.Chat(context.Background(), providers.Config{Model: "missing", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call chat completions API")
}

func TestListModels(t *testing.T) {
	var got map[string]any
	server := newServer(t, &got)
	defer server.Close()

	o := New(server.URL+"/v1", server.Client())
	models, err := o.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []providers.Model{
		{Name: "qwen2.5-7b-instruct"},
		{Name: "gemma-3-12b-it"},
	}, models)
}

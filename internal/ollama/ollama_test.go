package ollama

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

func TestChatSendsSchemaFormat(t *testing.T) {
	schema := map[string]any{"type": "object"}

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"model":"gemma3:12b","message":{"role":"assistant","content":"{\"ok\":true}"},"done":true}`))
	}))
	defer server.Close()

	o := New(server.URL, server.Client())
	content, err := o.Chat(context.Background(), providers.Config{
		Model:       "gemma3:12b",
		Prompt:      "extract this",
		Schema:      schema,
		Format:      providers.FormatSchema,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, content)

	assert.Equal(t, "gemma3:12b", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, schema, got["format"])
	assert.Equal(t, map[string]any{"temperature": 0.2}, got["options"])

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "extract this"}, messages[0])
}

func TestChatJSONModeSendsPlainFormat(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{}"}}`))
	}))
	defer server.Close()

	o := New(server.URL, server.Client())
	_, err := o.Chat(context.Background(), providers.Config{
		Model:  "llama3",
		Schema: map[string]any{"type": "object"},
		Format: providers.FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, "json", got["format"])
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "non-200 status",
			status:  http.StatusNotFound,
			body:    `{"error":"model \"missing\" not found"}`,
			wantErr: "ollama API returned status 404",
		},
		{
			name:    "error in body",
			status:  http.StatusOK,
			body:    `{"error":"out of memory"}`,
			wantErr: "ollama returned an error: out of memory",
		},
		{
			name:    "undecodable body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "failed to decode Ollama response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			o := New(server.URL, server.Client())
			_, err := o.Chat(context.Background(), providers.Config{Model: "missing"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"models":[
			{"name":"gemma3:12b","size":8149190253,"details":{"parameter_size":"12.2B"}},
			{"name":"llama3.2:3b","size":2019393189}
		]}`))
	}))
	defer server.Close()

	o := New(server.URL, server.Client())
	models, err := o.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []providers.Model{
		{Name: "gemma3:12b", Size: 8149190253},
		{Name: "llama3.2:3b", Size: 2019393189},
	}, models)
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		name       string
		ollamaURL  string
		ollamaHost string
		expected   string
	}{
		{
			name:     "defaults to localhost",
			expected: "http://localhost:11434",
		},
		{
			name:       "OLLAMA_URL wins over OLLAMA_HOST",
			ollamaURL:  "http://gpu-box:11434/",
			ollamaHost: "other:11434",
			expected:   "http://gpu-box:11434",
		},
		{
			name:       "bare OLLAMA_HOST gets a scheme",
			ollamaHost: "0.0.0.0:11434",
			expected:   "http://0.0.0.0:11434",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OLLAMA_URL", tt.ollamaURL)
			t.Setenv("OLLAMA_HOST", tt.ollamaHost)
			assert.Equal(t, tt.expected, ResolveHost())
		})
	}
}

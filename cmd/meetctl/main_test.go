package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

// newRecordingServer 返回一个记录请求并回显固定响应的测试服务器
func newRecordingServer(t *testing.T, status int, reply string) *recorder {
	t.Helper()
	got := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		got.mu.Lock()
		got.requests = append(got.requests, rec)
		got.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEETASSIST_SERVER_URL", srv.URL)
	return got
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandsHitExpectedEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   map[string]interface{}
	}{
		{"transcript", []string{"transcript", "--speaker", "alice"}, "GET", "/api/v1/session/transcript", "speaker=alice", nil},
		{"sentiment", []string{"sentiment"}, "GET", "/api/v1/session/sentiment", "", nil},
		{"actions default", []string{"actions"}, "GET", "/api/v1/session/action-items", "", nil},
		{"actions open", []string{"actions", "--status", "open"}, "GET", "/api/v1/session/action-items", "status=open", nil},
		{"complete", []string{"complete", "abc-123"}, "POST", "/api/v1/action-items/abc-123/complete", "", nil},
		{"status", []string{"status"}, "GET", "/api/v1/services/status", "", nil},
		{"clear", []string{"clear", "--yes"}, "POST", "/api/v1/session/clear", "", nil},
		{
			"say", []string{"say", "--speaker", "bob", "--text", "I will send the notes", "--generation", "3"},
			"POST", "/api/v1/meeting-input", "",
			map[string]interface{}{"speaker": "bob", "text": "I will send the notes", "generation": float64(3)},
		},
		{
			"translate", []string{"translate", "--to", "fr", "good", "morning"},
			"POST", "/api/v1/translations", "",
			map[string]interface{}{"text": "good morning", "to": "fr"},
		},
		{
			"ask", []string{"ask", "what", "is", "open"},
			"POST", "/api/v1/assistant/commands", "",
			map[string]interface{}{"command": "what is open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newRecordingServer(t, http.StatusOK, `{"ok":true}`)

			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, `"ok":true`)

			reqs := got.all()
			require.Len(t, reqs, 1)
			req := reqs[0]
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, tt.wantQuery, req.Query)
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, req.Body)
			}
		})
	}
}

func TestTranscribeUploadsFile(t *testing.T) {
	got := newRecordingServer(t, http.StatusOK, `{"sequence":1}`)

	path := filepath.Join(t.TempDir(), "chunk.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	_, err := execute(t, "transcribe", "--file", path, "--speaker", "alice", "--language", "en")
	require.NoError(t, err)

	reqs := got.all()
	require.Len(t, reqs, 1)
	body := reqs[0].Body
	assert.Equal(t, "UklGRg==", body["audio"], "audio is sent base64-encoded")
	assert.Equal(t, "alice", body["speaker"])
	assert.Equal(t, "en", body["language"])
}

func TestValidationBeforeRequest(t *testing.T) {
	got := newRecordingServer(t, http.StatusOK, `{}`)

	_, err := execute(t, "clear")
	assert.ErrorContains(t, err, "--yes")

	_, err = execute(t, "actions", "--status", "pending")
	assert.ErrorContains(t, err, "invalid status")

	_, err = execute(t, "transcribe", "--file", filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorContains(t, err, "read audio file")

	assert.Empty(t, got.all())
}

func TestServerErrorIsReported(t *testing.T) {
	newRecordingServer(t, http.StatusNotFound, `{"error":"NOT_FOUND","message":"action item not found"}`)

	_, err := execute(t, "complete", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404 NOT_FOUND")
	assert.Contains(t, err.Error(), "action item not found")
}

func TestJSONOutputIsIndented(t *testing.T) {
	newRecordingServer(t, http.StatusOK, `{"generation":2,"speakers":{}}`)

	out, err := execute(t, "sentiment", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  \"generation\": 2")
}

func TestLoadConfigPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEETASSIST_SERVER_URL", "")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".meetassist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".meetassist", "config.yaml"),
		[]byte("server_url: http://from-file:9000\noutput: json\n"), 0o644))

	root := newRootCmd()
	require.NoError(t, root.ParseFlags(nil))
	cfg := LoadConfig(root)
	assert.Equal(t, "http://from-file:9000", cfg.ServerURL)
	assert.Equal(t, "json", cfg.Output)

	t.Setenv("MEETASSIST_SERVER_URL", "http://from-env:9000")
	cfg = LoadConfig(root)
	assert.Equal(t, "http://from-env:9000", cfg.ServerURL)

	require.NoError(t, root.ParseFlags([]string{"--server-url", "http://from-flag:9000"}))
	cfg = LoadConfig(root)
	assert.Equal(t, "http://from-flag:9000", cfg.ServerURL)
}

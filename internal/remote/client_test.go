// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/rigrun-assist/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func newTestClient(srv *httptest.Server) *Client {
	cfg := DefaultConfig()
	cfg.ChatURL = srv.URL + "/chat"
	cfg.UploadURL = srv.URL + "/upload"
	cfg.Timeout = 5 * time.Second
	return NewClient(cfg, nil).WithHTTPClient(srv.Client())
}

// slowFile yields chunks of data with a pause before each read.
type slowFile struct {
	chunks int
	size   int
	delay  time.Duration
}

func (f *slowFile) Name() string { return "slow.bin" }
func (f *slowFile) Size() int64  { return int64(f.chunks * f.size) }
func (f *slowFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(&slowReader{left: f.chunks, size: f.size, delay: f.delay}), nil
}

type slowReader struct {
	left  int
	size  int
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.left == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	r.left--
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = 'x'
	}
	return n, nil
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_SendsWireFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"reply":"hi there"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	resp, err := c.Chat(context.Background(), ChatRequest{UserID: "user123", Message: "hello", Reset: true})
	require.NoError(t, err)
	require.Equal(t, "hi there", resp.Reply)

	require.Equal(t, "user123", got["user_id"])
	require.Equal(t, "hello", got["message"])
	require.Equal(t, true, got["reset"])
}

func TestChat_EmptyReplyIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":""}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Chat(context.Background(), ChatRequest{Message: "x"})
	require.NoError(t, err)
	require.Equal(t, "", resp.Reply)
}

func TestChat_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     Kind
		sentinel error
		userMsg  string
	}{
		{"missing reply", 200, `{"answer":"x"}`, KindMalformed, ErrMalformed, msgMalformed},
		{"null reply", 200, `{"reply":null}`, KindMalformed, ErrMalformed, msgMalformed},
		{"not json", 200, `<html>`, KindMalformed, ErrMalformed, msgMalformed},
		{"server error no body", 500, ``, KindRemote, ErrRemote, msgRemote},
		{"server detail", 422, `{"detail":"message too long"}`, KindRemote, ErrRemote, "message too long"},
		{"server message", 400, `{"message":"bad input"}`, KindRemote, ErrRemote, "bad input"},
		{"nested error", 503, `{"error":{"message":"overloaded"}}`, KindRemote, ErrRemote, "overloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Chat(context.Background(), ChatRequest{Message: "x"})
			require.Error(t, err)
			require.Equal(t, tt.kind, KindOf(err))
			require.True(t, errors.Is(err, tt.sentinel))
			require.Equal(t, tt.userMsg, UserMessage(err))
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.ChatURL = url + "/chat"
	c := NewClient(cfg, nil)

	_, err := c.Chat(context.Background(), ChatRequest{Message: "x"})
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, msgNetwork, UserMessage(err))
}

func TestChat_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv).Chat(ctx, ChatRequest{Message: "x"})
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "timed out")
}

func TestChat_ConfiguredTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.ChatURL = srv.URL
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewClient(cfg, nil).Chat(context.Background(), ChatRequest{Message: "x"})
	require.ErrorIs(t, err, ErrNetwork)
	require.Contains(t, err.Error(), "timed out")
}

func TestChat_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"` + strings.Repeat("a", 200) + `"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ChatURL = srv.URL
	cfg.MaxResponseSize = 64
	_, err := NewClient(cfg, nil).Chat(context.Background(), ChatRequest{Message: "x"})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestChat_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ChatURL = srv.URL
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	c := NewClient(cfg, nil)

	_, err := c.Chat(context.Background(), ChatRequest{Message: "first"})
	require.NoError(t, err)

	// The second request cannot get a token before the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Chat(ctx, ChatRequest{Message: "second"})
	require.ErrorIs(t, err, ErrNetwork)
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUpload_MultipartField(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		f, hdr, err := r.FormFile(UploadField)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Write([]byte(`{"message":"stored notes.txt"}`))
	}))
	defer srv.Close()

	content := strings.Repeat("line of notes\n", 1000)
	file := model.NewMemoryFile("notes.txt", []byte(content))

	var mu sync.Mutex
	var last, total int64
	resp, err := newTestClient(srv).Upload(context.Background(), file, func(sent, tot int64) {
		mu.Lock()
		defer mu.Unlock()
		assert.GreaterOrEqual(t, sent, last, "progress is monotonic")
		last, total = sent, tot
	})
	require.NoError(t, err)
	require.Equal(t, "stored notes.txt", resp.Message)
	require.Equal(t, "notes.txt", gotName)
	require.Equal(t, content, gotBody)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int64(len(content)), last)
	require.Equal(t, int64(len(content)), total)
}

func TestUpload_SlowBodyOutlastsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile(UploadField)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		n, _ := io.Copy(io.Discard, f)
		assert.Equal(t, int64(5*1024), n)
		w.Write([]byte(`{"message":"stored"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.UploadURL = srv.URL
	cfg.Timeout = 100 * time.Millisecond

	// Streaming takes about 200ms, twice the timeout.
	file := &slowFile{chunks: 5, size: 1024, delay: 40 * time.Millisecond}
	resp, err := NewClient(cfg, nil).Upload(context.Background(), file, nil)
	require.NoError(t, err)
	require.Equal(t, "stored", resp.Message)
}

func TestUpload_ReplyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.UploadURL = srv.URL
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewClient(cfg, nil).Upload(context.Background(), model.NewMemoryFile("a.txt", []byte("a")), nil)
	require.ErrorIs(t, err, ErrNetwork)
	require.Contains(t, err.Error(), "timed out")
}

func TestUpload_NilFile(t *testing.T) {
	c := NewClient(nil, nil)
	_, err := c.Upload(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpload_ServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	file := model.NewMemoryFile("big.bin", make([]byte, 64*1024))
	_, err := newTestClient(srv).Upload(context.Background(), file, nil)
	require.ErrorIs(t, err, ErrRemote)
	require.Equal(t, http.StatusRequestEntityTooLarge, err.(*Error).Status)
}

func TestUpload_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Upload(context.Background(), model.NewMemoryFile("a.txt", []byte("a")), nil)
	require.ErrorIs(t, err, ErrMalformed)
}

type unreadableFile struct{}

func (unreadableFile) Name() string { return "locked.txt" }
func (unreadableFile) Size() int64  { return 10 }
func (unreadableFile) Open() (io.ReadCloser, error) {
	return nil, errors.New("permission denied")
}

func TestUpload_UnreadableFile(t *testing.T) {
	_, err := NewClient(nil, nil).Upload(context.Background(), unreadableFile{}, nil)
	require.ErrorIs(t, err, ErrValidation)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestError_SentinelMatching(t *testing.T) {
	err := &Error{Kind: KindRemote, Status: 500, Message: "boom"}
	require.True(t, errors.Is(err, ErrRemote))
	require.False(t, errors.Is(err, ErrNetwork))

	// A non-sentinel Error only matches itself.
	other := NewValidationError("x")
	require.False(t, errors.Is(NewValidationError("x"), other))
	require.True(t, errors.Is(other, other))
	require.True(t, errors.Is(other, ErrValidation))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, msgUnknown, UserMessage(errors.New("plain")))
	require.Equal(t, "no file selected", UserMessage(NewValidationError("no file selected")))
	require.Equal(t, msgNetwork, UserMessage(&Error{Kind: KindNetwork, Message: "dial tcp: refused"}))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "network", KindNetwork.String())
	require.Equal(t, "unknown", Kind(99).String())
}

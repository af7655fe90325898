package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billetera/billetera-api/internal/postgrest"
)

type caller struct{}

func (caller) UserID() string      { return "user-1" }
func (caller) AccessToken() string { return "user-token" }

type restCall struct {
	method string
	uri    string
	body   map[string]any
}

type reply struct {
	status int
	body   string
}

// fakeREST plays the data store: it records each request and answers with
// the queued replies in order, repeating the last one.
type fakeREST struct {
	mu      sync.Mutex
	calls   []restCall
	replies []reply
}

func newFakeREST(t *testing.T, replies ...reply) (*fakeREST, *postgrest.Client) {
	t.Helper()

	f := &fakeREST{replies: replies}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := restCall{method: r.Method, uri: r.URL.RequestURI()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &call.body))
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		rep := f.replies[min(len(f.calls), len(f.replies))-1]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(server.Close)

	client, err := postgrest.New(server.URL, "anon-key")
	require.NoError(t, err)
	return f, client
}

func (f *fakeREST) only(t *testing.T) restCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.calls, 1)
	return f.calls[0]
}

func (f *fakeREST) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

const missingRelation = `{"code":"42P01","message":"relation \"public.%s\" does not exist"}`

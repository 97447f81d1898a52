package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Put(ctx, "a.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "sha256-"))

	again, err := m.Put(ctx, "b.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, id, again, "identical content shares an id")
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	_, err = m.Get(ctx, "sha256-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Ping(ctx))
}

// fakeNode mimics the parts of the IPFS RPC API the store uses.
func fakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	stored := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("pin"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		stored["bafytest"] = string(b)
		io.WriteString(w, `{"Name":"`+hdr.Filename+`","Hash":"bafytest","Size":"`+"12"+`"}`+"\n")
	})
	mux.HandleFunc("/api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		b, ok := stored[r.URL.Query().Get("arg")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"Message":"block was not found locally (offline)","Code":0,"Type":"error"}`)
			return
		}
		io.WriteString(w, b)
	})
	mux.HandleFunc("/api/v0/version", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Version":"0.29.0","Commit":"","Repo":"15"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIPFS_PutGet(t *testing.T) {
	node := fakeNode(t)
	s := NewIPFS(node.URL+"/", time.Second)
	ctx := context.Background()

	cid, err := s.Put(ctx, "dataset.json", []byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "bafytest", cid)

	got, err := s.Get(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, string(got))

	assert.NoError(t, s.Ping(ctx))
}

func TestIPFS_ErrorMessage(t *testing.T) {
	node := fakeNode(t)
	s := NewIPFS(node.URL, time.Second)

	_, err := s.Get(context.Background(), "bafymissing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content store: cat")
	assert.Contains(t, err.Error(), "block was not found locally")
}

func TestIPFS_GatewayFallback(t *testing.T) {
	node := fakeNode(t)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/bafyremote" {
			io.WriteString(w, "remote content")
			return
		}
		http.NotFound(w, r)
	}))
	defer gateway.Close()

	s := NewIPFS(node.URL, time.Second, WithGateway(gateway.URL))

	got, err := s.Get(context.Background(), "bafyremote")
	require.NoError(t, err)
	assert.Equal(t, "remote content", string(got))

	_, err = s.Get(context.Background(), "bafygone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIPFS_Unreachable(t *testing.T) {
	s := NewIPFS("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := s.Put(context.Background(), "x", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content store: add")
	assert.Error(t, s.Ping(context.Background()))
}

// Package testutil holds fixtures shared by package and integration tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ZipBytes builds an in-memory zip archive. Entries are written in name
// order so that archives are reproducible.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// FileServer serves byte payloads by path and is closed when the test ends.
type FileServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string][]byte
}

// NewFileServer starts an empty FileServer.
func NewFileServer(t *testing.T) *FileServer {
	t.Helper()
	fs := &FileServer{files: make(map[string][]byte)}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

// Put publishes data under name and returns its URL.
func (fs *FileServer) Put(name string, data []byte) string {
	name = strings.TrimPrefix(name, "/")
	fs.mu.Lock()
	fs.files[name] = data
	fs.mu.Unlock()
	return fs.URL + "/" + name
}

func (fs *FileServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	data, ok := fs.files[strings.TrimPrefix(r.URL.Path, "/")]
	fs.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"github.com/xinggaoya/GameModMaster/test/testutil"
)

// fakeCatalog serves the catalog API and trainer payloads.
type fakeCatalog struct {
	srv   *httptest.Server
	files *testutil.FileServer

	mu       sync.Mutex
	trainers map[string]model.Trainer

	listingHits atomic.Int32
}

func startCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{
		files:    testutil.NewFileServer(t),
		trainers: make(map[string]model.Trainer),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/trainers", func(w http.ResponseWriter, _ *http.Request) {
		fc.listingHits.Add(1)
		writeJSON(w, fc.page(""))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, fc.page(r.URL.Query().Get("q")))
	})
	mux.HandleFunc("/api/trainers/", func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		tr, ok := fc.trainers[strings.TrimPrefix(r.URL.Path, "/api/trainers/")]
		fc.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, tr)
	})

	fc.srv = httptest.NewServer(mux)
	t.Cleanup(fc.srv.Close)
	return fc
}

func (fc *fakeCatalog) apiURL() string {
	return fc.srv.URL + "/api"
}

// add registers a trainer whose download is a zip holding files.
func (fc *fakeCatalog) add(t *testing.T, tr model.Trainer, files map[string]string) {
	t.Helper()
	tr.DownloadURL = fc.files.Put(tr.ID+".zip", testutil.ZipBytes(t, files))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.trainers[tr.ID] = tr
}

func (fc *fakeCatalog) setVersion(id, version string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	tr := fc.trainers[id]
	tr.Version = version
	fc.trainers[id] = tr
}

func (fc *fakeCatalog) page(query string) model.Page {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	var p model.Page
	for _, tr := range fc.trainers {
		if query == "" || strings.Contains(strings.ToLower(tr.Name), strings.ToLower(query)) {
			p.Trainers = append(p.Trainers, tr)
		}
	}
	p.Total = len(p.Trainers)
	return p
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// testEnv is an isolated config, data directory and catalog for one test.
type testEnv struct {
	dir         string
	cfgPath     string
	downloadDir string
	catalog     *fakeCatalog
}

// newTestEnv writes a config pointing every path into a temp directory.
// Without a catalog the catalog_url setting stays empty.
func newTestEnv(t *testing.T, withCatalog bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:         dir,
		cfgPath:     filepath.Join(dir, "config", "config.yaml"),
		downloadDir: filepath.Join(dir, "downloads"),
	}

	catalogURL := ""
	if withCatalog {
		env.catalog = startCatalog(t)
		catalogURL = env.catalog.apiURL()
	}

	yamlContent := `settings:
  download_path: ` + env.downloadDir + `
  database_path: ` + filepath.Join(dir, "data", "gmm.db") + `
  catalog_url: "` + catalogURL + `"
  http_timeout: 5s
  max_concurrency: 2
`
	require.NoError(t, os.MkdirAll(filepath.Dir(env.cfgPath), 0o755))
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(yamlContent), 0o600))
	return env
}

// run executes gmm in process and returns what it wrote to stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	if errOut.Len() > 0 {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "gmm %s", strings.Join(args, " "))
	return out
}

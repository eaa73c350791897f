package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []model.DownloadProgress
}

func (r *recorder) sink(p model.DownloadProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, p)
}

func (r *recorder) all() []model.DownloadProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DownloadProgress(nil), r.snapshots...)
}

func (r *recorder) last(t *testing.T) model.DownloadProgress {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

// blockingServer writes a prefix and then holds the response open until
// release is closed or the client goes away.
func blockingServer(t *testing.T, prefix string, release <-chan struct{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(prefix))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		userAgent  string
		expectedUA string
	}{
		{
			name:       "default user agent",
			timeout:    time.Second,
			expectedUA: "gmm/1.0",
		},
		{
			name:       "custom user agent",
			timeout:    2 * time.Second,
			userAgent:  "test-agent/1.0",
			expectedUA: "test-agent/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, tt.timeout, tt.userAgent)
			require.NotNil(t, m)
			require.NotNil(t, m.Tracker())
			assert.Equal(t, tt.timeout, m.client.Timeout)
			assert.Equal(t, tt.expectedUA, m.userAgent)
		})
	}
}

func TestStart_KnownLength(t *testing.T) {
	payload := strings.Repeat("x", 100*1024)
	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "dir", "temp_t1.zip")
	m := NewManager(nil, 5*time.Second, "test-agent")
	rec := &recorder{}

	err := m.Start(context.Background(), server.URL, "t1", dest, rec.sink)
	require.NoError(t, err)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
	assert.Equal(t, "test-agent", <-agents)

	final := rec.last(t)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.InDelta(t, 100.0, final.Progress, 0.001)
	assert.Equal(t, int64(len(payload)), final.DownloadedBytes)
	require.NotNil(t, final.TotalBytes)
	assert.Equal(t, int64(len(payload)), *final.TotalBytes)
	assert.Nil(t, final.Speed)

	var prev int64
	for _, s := range rec.all() {
		assert.Equal(t, "t1", s.TrainerID)
		assert.GreaterOrEqual(t, s.DownloadedBytes, prev)
		assert.LessOrEqual(t, s.Progress, 100.0)
		prev = s.DownloadedBytes
	}

	assert.Empty(t, m.ListActive())
}

func TestStart_UnknownLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("first chunk "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("second chunk"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "payload.bin")
	m := NewManager(nil, 5*time.Second, "")
	m.emitInterval = time.Nanosecond
	rec := &recorder{}

	require.NoError(t, m.Start(context.Background(), server.URL, "chunked", dest, rec.sink))

	all := rec.all()
	require.NotEmpty(t, all)
	for _, s := range all[:len(all)-1] {
		assert.Nil(t, s.TotalBytes)
		assert.Zero(t, s.Progress)
	}
	final := all[len(all)-1]
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.InDelta(t, 100.0, final.Progress, 0.001)
	assert.Equal(t, int64(len("first chunk second chunk")), final.DownloadedBytes)
}

func TestStart_SpeedCarriesLatestSample(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("warmup "))
		w.(http.Flusher).Flush()
		time.Sleep(60 * time.Millisecond)
		for i := 0; i < 5; i++ {
			_, _ = w.Write([]byte("chunk "))
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	m := NewManager(nil, 5*time.Second, "")
	m.emitInterval = time.Nanosecond
	m.speedInterval = 20 * time.Millisecond
	rec := &recorder{}

	require.NoError(t, m.Start(context.Background(), server.URL, "speed", filepath.Join(t.TempDir(), "p.bin"), rec.sink))

	all := rec.all()
	require.NotEmpty(t, all)
	sampled := false
	for _, s := range all[:len(all)-1] {
		if sampled {
			assert.NotNil(t, s.Speed, "speed is kept between samples")
		}
		if s.Speed != nil {
			sampled = true
			assert.GreaterOrEqual(t, *s.Speed, 0.0)
		}
	}
	assert.True(t, sampled)
	assert.Nil(t, all[len(all)-1].Speed)
}

func TestStart_HTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "out.bin")
			m := NewManager(nil, time.Second, "test")
			rec := &recorder{}

			err := m.Start(context.Background(), server.URL, "bad", dest, rec.sink)
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("unexpected status code: %d", tt.status))
			assert.True(t, errors.Is(err, errors.ErrDownloadFailed))
			assert.Equal(t, errors.Download, errors.KindOf(err))

			assert.NoFileExists(t, dest)
			assert.Equal(t, model.StatusError, rec.last(t).Status)
			assert.Zero(t, m.Tracker().Len())
		})
	}
}

func TestStart_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	m := NewManager(nil, time.Second, "test")
	err := m.Start(context.Background(), url, "offline", filepath.Join(t.TempDir(), "x"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.Network, errors.KindOf(err))
	assert.Zero(t, m.Tracker().Len())
}

func TestStart_EmptyID(t *testing.T) {
	m := NewManager(nil, time.Second, "test")
	err := m.Start(context.Background(), "http://127.0.0.1/", "", filepath.Join(t.TempDir(), "x"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.Validation, errors.KindOf(err))
}

func TestStart_Cancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	server := blockingServer(t, strings.Repeat("a", 4096), release)

	dest := filepath.Join(t.TempDir(), "partial.bin")
	m := NewManager(nil, 0, "test")
	m.emitInterval = time.Nanosecond
	rec := &recorder{}

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background(), server.URL, "slow", dest, rec.sink)
	}()

	require.Eventually(t, func() bool {
		p, ok := m.Tracker().Get("slow")
		return ok && p.DownloadedBytes > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, m.Cancel("slow"))
	assert.False(t, m.Cancel("slow"))

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not stop after cancel")
	}

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, errors.Download, errors.KindOf(err))
	assert.NoFileExists(t, dest)
	assert.Equal(t, model.StatusCancelled, rec.last(t).Status)
	assert.Empty(t, m.ListActive())
}

func TestStart_ParentContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	server := blockingServer(t, "abc", release)

	m := NewManager(nil, 0, "test")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Start(ctx, server.URL, "parent", filepath.Join(t.TempDir(), "p.bin"), nil)
	}()

	require.Eventually(t, func() bool { return m.Tracker().Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("transfer ignored context cancellation")
	}
}

func TestStart_DuplicateID(t *testing.T) {
	release := make(chan struct{})
	server := blockingServer(t, "abc", release)

	m := NewManager(nil, 0, "test")
	dir := t.TempDir()

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background(), server.URL, "dup", filepath.Join(dir, "first.bin"), nil)
	}()
	require.Eventually(t, func() bool { return m.Tracker().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	err := m.Start(context.Background(), server.URL, "dup", filepath.Join(dir, "second.bin"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransferActive))
	assert.NoFileExists(t, filepath.Join(dir, "second.bin"))

	assert.True(t, m.Cancel("dup"))
	close(release)
	<-done
}

func TestStart_Concurrent(t *testing.T) {
	const n = 8
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("content for " + r.URL.Path[1:]))
	}))
	defer server.Close()

	m := NewManager(nil, 5*time.Second, "test")
	m.emitInterval = time.Nanosecond
	dir := t.TempDir()

	stop := make(chan struct{})
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			seen := make(map[string]bool)
			for _, p := range m.ListActive() {
				assert.False(t, seen[p.TrainerID], "duplicate entry %s", p.TrainerID)
				seen[p.TrainerID] = true
			}
		}
	}()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			errs[i] = m.Start(context.Background(), server.URL+"/"+id, id, filepath.Join(dir, id+".bin"), nil)
		}(i)
	}
	wg.Wait()
	close(stop)
	watcher.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		content, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("t%d.bin", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("content for t%d", i), string(content))
	}
	assert.Empty(t, m.ListActive())
}

func TestStart_Throttled(t *testing.T) {
	payload := strings.Repeat("z", 512*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	m := NewManager(nil, 5*time.Second, "test")
	m.emitInterval = time.Hour
	rec := &recorder{}

	require.NoError(t, m.Start(context.Background(), server.URL, "quiet", filepath.Join(t.TempDir(), "q.bin"), rec.sink))

	all := rec.all()
	require.Len(t, all, 2)
	assert.Equal(t, model.StatusDownloading, all[0].Status)
	assert.Equal(t, model.StatusCompleted, all[1].Status)
}

func TestClearAll_DoesNotResurrect(t *testing.T) {
	release := make(chan struct{})
	server := blockingServer(t, "abc", release)

	m := NewManager(nil, 0, "test")
	m.emitInterval = time.Nanosecond

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background(), server.URL, "kept", filepath.Join(t.TempDir(), "k.bin"), nil)
	}()
	require.Eventually(t, func() bool { return m.Tracker().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, m.ClearAll())
	assert.Empty(t, m.ListActive())

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not finish")
	}
	assert.Empty(t, m.ListActive())
}

func TestPercent(t *testing.T) {
	total := int64(200)
	zero := int64(0)
	assert.Zero(t, percent(50, nil))
	assert.Zero(t, percent(50, &zero))
	assert.InDelta(t, 25.0, percent(50, &total), 0.001)
	assert.InDelta(t, 100.0, percent(500, &total), 0.001)
}

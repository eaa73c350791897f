// Package download streams remote payloads to disk while tracking progress.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "gmm/1.0"

	defaultEmitInterval  = 200 * time.Millisecond
	defaultSpeedInterval = time.Second
	copyBufferSize       = 32 * 1024
)

// Manager is an HTTP download engine. Every transfer is registered in the
// tracker for its whole lifetime.
type Manager struct {
	client        *http.Client
	userAgent     string
	tracker       *Tracker
	emitInterval  time.Duration
	speedInterval time.Duration
}

// NewManager creates a download manager. A zero timeout means no timeout.
// A nil tracker gets a private one.
func NewManager(tracker *Tracker, timeout time.Duration, userAgent string) *Manager {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Manager{
		client:        &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		tracker:       tracker,
		emitInterval:  defaultEmitInterval,
		speedInterval: defaultSpeedInterval,
	}
}

// Tracker returns the registry this manager publishes to.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// ListActive returns a snapshot of every in-flight transfer.
func (m *Manager) ListActive() []model.DownloadProgress {
	return m.tracker.List()
}

// Cancel aborts a transfer and reports whether it was active.
func (m *Manager) Cancel(transferID string) bool {
	return m.tracker.Cancel(transferID)
}

// ClearAll empties the registry and returns how many entries were removed.
func (m *Manager) ClearAll() int {
	return m.tracker.ClearAll()
}

// Start downloads rawURL into dest.
//
// Snapshots are published to sink and the tracker at most every 200ms and the
// speed estimate is refreshed at most every second. On success the file is
// synced and a completed snapshot is emitted. On failure or cancellation the
// partial file is removed, a terminal snapshot is emitted and the error is
// returned. The tracker entry is removed on every path.
func (m *Manager) Start(ctx context.Context, rawURL, transferID, dest string, sink ProgressSink) error {
	op := "download " + transferID
	if transferID == "" {
		return errors.New(errors.Validation, "transfer id cannot be empty")
	}
	if sink == nil {
		sink = func(model.DownloadProgress) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := m.tracker.register(model.DownloadProgress{TrainerID: transferID, Status: model.StatusDownloading}, cancel)
	if err != nil {
		return err
	}
	defer m.tracker.remove(h)

	if err := fsutil.EnsureFileDir(dest); err != nil {
		return m.fail(ctx, op, h, h.state, sink, errors.E(errors.IO, op, err))
	}

	resp, err := m.doRequest(ctx, rawURL)
	if err != nil {
		return m.fail(ctx, op, h, model.DownloadProgress{TrainerID: transferID}, sink, err)
	}
	defer func() { _ = resp.Body.Close() }()

	state := model.DownloadProgress{TrainerID: transferID, Status: model.StatusDownloading}
	if resp.ContentLength >= 0 {
		total := resp.ContentLength
		state.TotalBytes = &total
	}

	f, err := fsutil.CreateFilePerm(dest, fsutil.FileModeDefault)
	if err != nil {
		return m.fail(ctx, op, h, state, sink, errors.E(errors.IO, op, err))
	}

	logger.Debug("Transfer started", logger.Fields{"id": transferID, "url": rawURL, "dest": dest})

	state, err = m.stream(ctx, h, resp.Body, f, state, sink)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := fsutil.RemoveIfExists(dest); rmErr != nil {
			logger.Warn("Failed to remove partial download", logger.Fields{"path": dest, "error": rmErr.Error()})
		}
		return m.fail(ctx, op, h, state, sink, err)
	}

	state.Status = model.StatusCompleted
	state.Progress = 100
	state.Speed = nil
	m.tracker.update(h, state)
	sink(state)

	logger.Debug("Transfer completed", logger.Fields{"id": transferID, "bytes": state.DownloadedBytes})
	return nil
}

// stream copies body into w, publishing throttled progress snapshots.
func (m *Manager) stream(ctx context.Context, h *transfer, body io.Reader, w io.Writer, state model.DownloadProgress, sink ProgressSink) (model.DownloadProgress, error) {
	publish := func() {
		m.tracker.update(h, state)
		sink(state)
	}

	emit := rate.Sometimes{Interval: m.emitInterval}
	sample := rate.Sometimes{Interval: m.speedInterval}

	lastSampleAt := time.Now()
	var lastSampleBytes int64
	sample.Do(func() {})
	emit.Do(publish)

	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return state, errors.E(errors.IO, "write "+h.id, err)
			}
			state.DownloadedBytes += int64(n)
			state.Progress = percent(state.DownloadedBytes, state.TotalBytes)

			sample.Do(func() {
				now := time.Now()
				if elapsed := now.Sub(lastSampleAt).Seconds(); elapsed > 0 {
					kbps := float64(state.DownloadedBytes-lastSampleBytes) / elapsed / 1024
					state.Speed = &kbps
				}
				lastSampleAt = now
				lastSampleBytes = state.DownloadedBytes
			})
			emit.Do(publish)
		}

		if readErr == io.EOF {
			return state, nil
		}
		if readErr != nil {
			return state, readErr
		}
	}
}

// fail publishes the terminal snapshot for a failed transfer and converts
// err into a kinded error.
func (m *Manager) fail(ctx context.Context, op string, h *transfer, state model.DownloadProgress, sink ProgressSink, err error) error {
	state.Status = model.StatusError
	state.Speed = nil

	var kinded error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		state.Status = model.StatusCancelled
		kinded = &errors.Error{Kind: errors.Download, Op: op, Detail: "cancelled", Err: context.Canceled}
	case errors.As(err, new(*errors.Error)):
		kinded = err
	default:
		kinded = errors.E(errors.Network, op, err)
	}

	m.tracker.update(h, state)
	sink(state)

	logger.Debug("Transfer failed", logger.Fields{"id": h.id, "status": string(state.Status), "error": kinded.Error()})
	return kinded
}

func (m *Manager) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.E(errors.Validation, "build request", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &errors.Error{
			Kind:   errors.Download,
			Op:     "GET " + rawURL,
			Detail: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Err:    errors.ErrDownloadFailed,
		}
	}
	return resp, nil
}

func percent(done int64, total *int64) float64 {
	if total == nil || *total <= 0 {
		return 0
	}
	p := float64(done) / float64(*total) * 100
	if p > 100 {
		return 100
	}
	return p
}

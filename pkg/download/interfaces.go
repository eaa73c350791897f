package download

import (
	"context"

	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// ProgressSink receives transfer snapshots. It is called from the goroutine
// running the transfer, with non-decreasing byte counts for one transfer id.
type ProgressSink func(model.DownloadProgress)

// Downloader streams a remote resource into a local file.
type Downloader interface {
	// Start fetches rawURL into dest, publishing progress under transferID.
	// It blocks until the transfer completes, fails or is cancelled.
	Start(ctx context.Context, rawURL, transferID, dest string, sink ProgressSink) error
}

var _ Downloader = (*Manager)(nil)

package model

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

// Transfer states.
const (
	StatusDownloading TransferStatus = "downloading"
	StatusCompleted   TransferStatus = "completed"
	StatusError       TransferStatus = "error"
	StatusCancelled   TransferStatus = "cancelled"
)

// DownloadProgress is a point in time snapshot of one transfer.
// Progress is a percentage in [0, 100] and stays 0 while the total size is
// unknown. Speed is in KB/s. It is nil until the first speed sample, then
// carries the latest sample on every snapshot, and is nil again on the
// terminal snapshot.
type DownloadProgress struct {
	TrainerID       string         `json:"trainer_id"`
	Progress        float64        `json:"progress"`
	DownloadedBytes int64          `json:"downloaded_bytes"`
	TotalBytes      *int64         `json:"total_bytes"`
	Status          TransferStatus `json:"status"`
	Speed           *float64       `json:"speed"`
}

// Done reports whether the transfer reached a terminal state.
func (p DownloadProgress) Done() bool {
	return p.Status != StatusDownloading
}

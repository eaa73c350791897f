//go:generate mockgen -destination=./mocks/installer.go . Downloader,Extractor,Store,HookRunner

package installer

import (
	"context"

	"github.com/xinggaoya/GameModMaster/pkg/download"
	"github.com/xinggaoya/GameModMaster/pkg/hook"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Downloader is the subset of the download engine used by the installer.
type Downloader interface {
	Start(ctx context.Context, rawURL, transferID, dest string, sink download.ProgressSink) error
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	ExtractAll(ctx context.Context, archivePath, destDir string) error
}

// Store is the subset of the persistent store used by the installer.
type Store interface {
	RecordInstall(ctx context.Context, t model.InstalledTrainer) error
	GetInstalled(ctx context.Context, id string) (model.InstalledTrainer, bool, error)
	DeleteInstalled(ctx context.Context, id string) error
}

// HookRunner runs user hooks after installs and removals.
type HookRunner interface {
	Execute(ctx context.Context, hookType hook.Type, hctx hook.Context) error
}

// Phase names an acquisition step.
type Phase string

// Acquisition phases in the order they are emitted.
const (
	PhaseDownloading Phase = "downloading"
	PhaseProcessing  Phase = "processing"
	PhaseExtracting  Phase = "extracting"
	PhaseMoving      Phase = "moving"
	PhasePersisting  Phase = "persisting"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// Event represents a simple progress notification.
type Event struct {
	Phase Phase
	ID    string // trainer ID
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent    func(Event)
	OnProgress download.ProgressSink
}

func (h Hooks) emit(e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/xinggaoya/GameModMaster/pkg/installer"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// progressView renders the combined progress of concurrent transfers as one
// bar. Each transfer contributes up to 100 units.
type progressView struct {
	mu     sync.Mutex
	out    io.Writer
	bar    *progressbar.ProgressBar
	states map[string]model.DownloadProgress
}

func newProgressView(out, barOut io.Writer, transfers int, color bool) *progressView {
	bar := progressbar.NewOptions(transfers*100,
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionEnableColorCodes(color),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressView{out: out, bar: bar, states: make(map[string]model.DownloadProgress)}
}

// Progress is a download.ProgressSink.
func (v *progressView) Progress(p model.DownloadProgress) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.states[p.TrainerID] = p

	var units float64
	var done int64
	var speed float64
	active := 0
	for _, s := range v.states {
		units += s.Progress
		done += s.DownloadedBytes
		if s.Speed != nil {
			speed += *s.Speed
		}
		if !s.Done() {
			active++
		}
	}

	desc := fmt.Sprintf("Downloading %d, %s", active, formatSize(done))
	if speed > 0 {
		desc += " at " + formatSpeed(speed)
	}
	v.bar.Describe(desc)
	_ = v.bar.Set(int(units))
}

// Event prints an acquisition event above the bar.
func (v *progressView) Event(e installer.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	_ = v.bar.Clear()
	line := string(e.Phase)
	if e.ID != "" {
		line += " " + e.ID
	}
	if e.Msg != "" {
		line += ": " + e.Msg
	}
	_, _ = fmt.Fprintln(v.out, line)
}

// Hooks returns installer hooks feeding this view.
func (v *progressView) Hooks() installer.Hooks {
	return installer.Hooks{OnEvent: v.Event, OnProgress: v.Progress}
}

func (v *progressView) Finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	_ = v.bar.Finish()
}

package hub

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"walkabout/server/internal/protocol"
	"walkabout/server/internal/world"
)

// Mode selects what each tick broadcasts.
type Mode string

const (
	// ModeDelta broadcasts only players that moved since the last tick.
	ModeDelta Mode = "delta"
	// ModeFull broadcasts the whole player set every tick.
	ModeFull Mode = "full"
)

// ParseMode validates a broadcast mode name from configuration.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeDelta, ModeFull:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unsupported broadcast mode %q", value)
	}
}

// DefaultTickInterval is the nominal dissemination period.
const DefaultTickInterval = 500 * time.Millisecond

// Loop drives fixed-rate state dissemination. A single goroutine consumes
// the ticker, so ticks never overlap: when a tick overruns its period the
// next one simply starts late.
type Loop struct {
	hub      *Hub
	interval time.Duration
	mode     Mode
	hook     func()
	logger   *zap.SugaredLogger
}

// NewLoop builds a loop over the given hub. A non-positive interval falls
// back to DefaultTickInterval.
func NewLoop(h *Hub, interval time.Duration, mode Mode, logger *zap.SugaredLogger) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if mode == "" {
		mode = ModeDelta
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loop{hub: h, interval: interval, mode: mode, logger: logger}
}

// SetHook installs the per-tick game-logic hook. It runs at the start of
// every tick, before the snapshot is taken. Reserved extension point; the
// server currently installs nothing.
func (l *Loop) SetHook(fn func()) {
	l.hook = fn
}

// Run blocks, ticking until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Infow("dissemination loop running", "interval", l.interval, "mode", l.mode)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick runs one dissemination pass: game hook, then snapshot, then a single
// state broadcast when there is anything to send.
func (l *Loop) Tick() {
	if l.hook != nil {
		l.hook()
	}

	var players []world.PlayerState
	if l.mode == ModeFull {
		players = l.hub.Store().SnapshotAll()
	} else {
		players = l.hub.Store().SnapshotChanged()
	}
	if len(players) == 0 {
		return
	}
	l.hub.Broadcast(&protocol.StateMessage{Players: players})
}

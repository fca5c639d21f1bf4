package services

import (
	"math"
	"sync"
)

type PlayerCommandType string

const (
	PlayerCommandSeek  PlayerCommandType = "seek"
	PlayerCommandPlay  PlayerCommandType = "play"
	PlayerCommandPause PlayerCommandType = "pause"
)

// PlayerCommand is an instruction for the client's video element. Seq orders
// commands within one session.
type PlayerCommand struct {
	Seq      int64             `json:"seq"`
	Type     PlayerCommandType `json:"type"`
	Position *float64          `json:"position,omitempty"`
}

const playerHistory = 128

// RemotePlayer stands in for a player running in the learner's browser. The
// gate drives it; the client reports its position back and receives the
// commands both in API responses and over SSE, deduplicating by Seq.
type RemotePlayer struct {
	mu       sync.Mutex
	position float64
	seq      int64
	lastSeek int64
	history  []PlayerCommand
	drained  int64
	notify   chan struct{}
}

func NewRemotePlayer() *RemotePlayer {
	return &RemotePlayer{notify: make(chan struct{}, 1)}
}

func (p *RemotePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *RemotePlayer) SeekTo(seconds float64) {
	p.mu.Lock()
	p.position = seconds
	pos := seconds
	p.enqueueLocked(PlayerCommand{Type: PlayerCommandSeek, Position: &pos})
	p.lastSeek = p.seq
	p.mu.Unlock()
}

// StaleReport reports whether a client that has applied commands up to seen
// is still behind the latest seek.
func (p *RemotePlayer) StaleReport(seen int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return seen < p.lastSeek
}

func (p *RemotePlayer) Play() { p.push(PlayerCommandPlay) }

func (p *RemotePlayer) Pause() { p.push(PlayerCommandPause) }

// Report records the position the client last saw. Invalid values are
// ignored.
func (p *RemotePlayer) Report(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return
	}
	p.mu.Lock()
	p.position = seconds
	p.mu.Unlock()
}

// ReportSeen is Report for a client that has applied commands up to seen.
// Positions that predate the latest seek are ignored.
func (p *RemotePlayer) ReportSeen(seconds float64, seen int64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if seen < p.lastSeek {
		return
	}
	p.position = seconds
}

// Drain returns the commands issued since the previous Drain, oldest first.
func (p *RemotePlayer) Drain() []PlayerCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.sinceLocked(p.drained)
	p.drained = p.seq
	return out
}

// Since returns the retained commands with Seq greater than after.
func (p *RemotePlayer) Since(after int64) []PlayerCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sinceLocked(after)
}

func (p *RemotePlayer) sinceLocked(after int64) []PlayerCommand {
	var out []PlayerCommand
	for _, c := range p.history {
		if c.Seq > after {
			out = append(out, c)
		}
	}
	return out
}

// Notify receives a value whenever commands are queued.
func (p *RemotePlayer) Notify() <-chan struct{} { return p.notify }

func (p *RemotePlayer) push(t PlayerCommandType) {
	p.mu.Lock()
	p.enqueueLocked(PlayerCommand{Type: t})
	p.mu.Unlock()
}

func (p *RemotePlayer) enqueueLocked(cmd PlayerCommand) {
	p.seq++
	cmd.Seq = p.seq
	p.history = append(p.history, cmd)
	if len(p.history) > playerHistory {
		p.history = append([]PlayerCommand(nil), p.history[len(p.history)-playerHistory:]...)
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

package session

import (
	"io"
	"log/slog"
	"sync"
)

// Cue names a short sound played on user-visible actions.
type Cue string

const (
	Keystroke1   Cue = "keystroke1"
	Keystroke2   Cue = "keystroke2"
	Keystroke3   Cue = "keystroke3"
	Keystroke4   Cue = "keystroke4"
	MouseClick   Cue = "mouse-click"
	Notification Cue = "notification"
	SoundOn      Cue = "sound-on"
	SoundOff     Cue = "sound-off"
)

// Keystrokes are the cues picked at random while typing.
var Keystrokes = []Cue{Keystroke1, Keystroke2, Keystroke3, Keystroke4}

// Player plays sound cues. Implementations must not block.
type Player interface {
	Play(cue Cue)
}

// BellPlayer rings the terminal bell on notifications and logs every cue.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
	log *slog.Logger
}

func NewBellPlayer(out io.Writer, log *slog.Logger) *BellPlayer {
	return &BellPlayer{out: out, log: log}
}

func (p *BellPlayer) Play(cue Cue) {
	p.log.Debug("Sound cue", "cue", cue)
	if cue != Notification {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, "\a")
}

// RecordingPlayer keeps every played cue in order.
type RecordingPlayer struct {
	mu   sync.Mutex
	cues []Cue
}

func (p *RecordingPlayer) Play(cue Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cues = append(p.cues, cue)
}

// Cues returns a copy of the played cues.
func (p *RecordingPlayer) Cues() []Cue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Cue(nil), p.cues...)
}

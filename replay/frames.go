package replay

import (
	"sync/atomic"
	"time"

	"github.com/Digital-Creators-Team/arcade-client/game"
)

// Frame kinds
const (
	FrameHighlight = "highlight"
	FrameApply     = "apply"
	FrameFinish    = "finish"
)

// Frame is a game-agnostic presentation event
type Frame struct {
	Seq       uint64       `json:"seq"`
	GameCode  string       `json:"gameCode"`
	Kind      string       `json:"kind"`
	Step      int          `json:"step"`
	StepKind  string       `json:"stepKind,omitempty"`
	Marks     []int        `json:"marks,omitempty"`
	Motion    *game.Motion `json:"motion,omitempty"`
	Board     any          `json:"board,omitempty"`
	Corrected bool         `json:"corrected,omitempty"`
	At        time.Time    `json:"at"`
}

// Sink consumes frames
type Sink interface {
	Frame(f Frame)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(Frame)

func (f SinkFunc) Frame(fr Frame) { f(fr) }

// Tee fans frames out to several sinks in order
type Tee []Sink

func (t Tee) Frame(f Frame) {
	for _, s := range t {
		s.Frame(f)
	}
}

// FrameRenderer turns typed renderer calls into frames for a sink
type FrameRenderer[B any] struct {
	gameCode string
	sink     Sink
	seq      atomic.Uint64
}

// NewFrameRenderer creates a renderer that forwards to sink
func NewFrameRenderer[B any](gameCode string, sink Sink) *FrameRenderer[B] {
	return &FrameRenderer[B]{gameCode: gameCode, sink: sink}
}

func (r *FrameRenderer[B]) Highlight(step game.Step[B]) {
	r.emit(Frame{
		Kind:     FrameHighlight,
		Step:     step.Index,
		StepKind: step.Kind,
		Marks:    step.Marks,
		Motion:   step.Motion,
	})
}

func (r *FrameRenderer[B]) Apply(board B) {
	r.emit(Frame{Kind: FrameApply, Step: -1, Board: board})
}

func (r *FrameRenderer[B]) Finish(res Result[B]) {
	r.emit(Frame{Kind: FrameFinish, Step: res.Steps, Board: res.Final, Corrected: res.Corrected})
}

func (r *FrameRenderer[B]) emit(f Frame) {
	if r.sink == nil {
		return
	}
	f.Seq = r.seq.Add(1)
	f.GameCode = r.gameCode
	f.At = time.Now().UTC()
	r.sink.Frame(f)
}

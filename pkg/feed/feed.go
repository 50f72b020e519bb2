// Package feed fans replay frames out to live listeners such as the
// bridge's websocket clients.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/replay"
)

const allGames = "*"

// Subscription receives frames for one game, or every game
type Subscription struct {
	ID       string
	GameCode string
	C        chan replay.Frame
}

// Feed is a minimal pub/sub for frames. Slow listeners drop frames rather
// than stall a replay.
type Feed struct {
	buffer int
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[string]map[string]*Subscription
}

// New creates a feed whose subscriptions buffer up to buffer frames
func New(buffer int, logger zerolog.Logger) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{
		buffer: buffer,
		logger: logger.With().Str("component", "feed").Logger(),
		subs:   make(map[string]map[string]*Subscription),
	}
}

// Frame publishes f to the game's and the wildcard subscribers (non-blocking)
func (f *Feed) Frame(fr replay.Frame) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, key := range []string{fr.GameCode, allGames} {
		for _, s := range f.subs[key] {
			select {
			case s.C <- fr:
			default:
				f.logger.Debug().Str("sub_id", s.ID).Uint64("seq", fr.Seq).Msg("Listener slow, frame dropped")
			}
		}
	}
}

// Subscribe registers a listener for gameCode; an empty code listens to all games
func (f *Feed) Subscribe(gameCode string) *Subscription {
	if gameCode == "" {
		gameCode = allGames
	}
	s := &Subscription{
		ID:       uuid.NewString(),
		GameCode: gameCode,
		C:        make(chan replay.Frame, f.buffer),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[gameCode] == nil {
		f.subs[gameCode] = make(map[string]*Subscription)
	}
	f.subs[gameCode][s.ID] = s
	return s
}

// Unsubscribe removes s and closes its channel. Repeated calls are no-ops.
func (f *Feed) Unsubscribe(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group := f.subs[s.GameCode]
	if _, ok := group[s.ID]; !ok {
		return
	}
	delete(group, s.ID)
	if len(group) == 0 {
		delete(f.subs, s.GameCode)
	}
	close(s.C)
}

// Listen subscribes until ctx is done or the returned cancel is called
func (f *Feed) Listen(ctx context.Context, gameCode string) (<-chan replay.Frame, context.CancelFunc) {
	listenerCtx, cancel := context.WithCancel(ctx)
	s := f.Subscribe(gameCode)
	go func() {
		<-listenerCtx.Done()
		f.Unsubscribe(s)
	}()
	return s.C, cancel
}

// Listeners returns the number of active subscriptions
func (f *Feed) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, g := range f.subs {
		n += len(g)
	}
	return n
}

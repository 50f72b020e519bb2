package feed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/replay"
)

func TestFeed_RoutesByGame(t *testing.T) {
	f := New(4, zerolog.Nop())
	roulette := f.Subscribe("roulette")
	all := f.Subscribe("")

	f.Frame(replay.Frame{Seq: 1, GameCode: "roulette", Kind: replay.FrameHighlight})
	f.Frame(replay.Frame{Seq: 2, GameCode: "poker", Kind: replay.FrameApply})

	if got := <-roulette.C; got.Seq != 1 {
		t.Errorf("expected roulette frame, got %+v", got)
	}
	select {
	case fr := <-roulette.C:
		t.Errorf("roulette listener got foreign frame %+v", fr)
	default:
	}
	if a, b := <-all.C, <-all.C; a.Seq != 1 || b.Seq != 2 {
		t.Errorf("wildcard listener expected both frames, got %d and %d", a.Seq, b.Seq)
	}
}

func TestFeed_DropsWhenFull(t *testing.T) {
	f := New(1, zerolog.Nop())
	s := f.Subscribe("minas")
	for i := uint64(1); i <= 3; i++ {
		f.Frame(replay.Frame{Seq: i, GameCode: "minas"})
	}
	if got := <-s.C; got.Seq != 1 {
		t.Errorf("expected first frame kept, got %d", got.Seq)
	}
	select {
	case fr := <-s.C:
		t.Errorf("expected overflow dropped, got %+v", fr)
	default:
	}
}

func TestFeed_ListenCancel(t *testing.T) {
	f := New(2, zerolog.Nop())
	ch, cancel := f.Listen(context.Background(), "cascadas")
	if f.Listeners() != 1 {
		t.Fatalf("expected one listener, got %d", f.Listeners())
	}
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("listener not closed after cancel")
	}
	if f.Listeners() != 0 {
		t.Errorf("expected no listeners, got %d", f.Listeners())
	}
}

func TestFeed_UnsubscribeTwice(t *testing.T) {
	f := New(1, zerolog.Nop())
	s := f.Subscribe("poker")
	f.Unsubscribe(s)
	f.Unsubscribe(s)
}

func TestFeed_AsFrameRendererSink(t *testing.T) {
	f := New(4, zerolog.Nop())
	s := f.Subscribe("blackjack")
	r := replay.NewFrameRenderer[string]("blackjack", f)
	r.Apply("dealt")

	fr := <-s.C
	if fr.GameCode != "blackjack" || fr.Kind != replay.FrameApply || fr.Board != "dealt" {
		t.Errorf("unexpected frame %+v", fr)
	}
}

// Package sequencer turns engine-produced batches of pending turns into a
// staggered, strictly ordered reveal on the message timeline.
//
// Delays are chained, not independent: the next turn's delay starts only after
// the previous turn has been revealed, so a slower earlier turn can never be
// overtaken by a faster later one. A single scheduler loop consumes the queue;
// a flow reset bumps the generation and late-arriving turns from the old
// generation are dropped before they can touch the timeline.
package sequencer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/timeline"
)

// Clock abstracts delay waits so ordering is testable without wall-clock
// sleeps.
type Clock interface {
	Wait(d time.Duration)
}

// RealClock waits on the system clock.
type RealClock struct{}

// Wait sleeps for the given duration.
func (RealClock) Wait(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

type item struct {
	gen  uint64
	turn models.PendingTurn
}

// Sequencer owns the pending-turn queue for one session timeline.
type Sequencer struct {
	tl    *timeline.Timeline
	clock Clock

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []item
	inFlight bool
	closed   bool
	gen      uint64
}

// New creates a sequencer writing to the given timeline and starts its
// scheduler loop.
func New(tl *timeline.Timeline, clock Clock) *Sequencer {
	if clock == nil {
		clock = RealClock{}
	}
	s := &Sequencer{tl: tl, clock: clock}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

// Enqueue appends a batch of pending turns to the reveal queue, tagged with
// the current flow generation.
func (s *Sequencer) Enqueue(turns []models.PendingTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		slog.Warn("sequencer.Enqueue: sequencer already closed, dropping turns", "count", len(turns))
		return
	}
	for _, t := range turns {
		s.queue = append(s.queue, item{gen: s.gen, turn: t})
	}
	slog.Debug("sequencer.Enqueue: turns queued", "count", len(turns), "generation", s.gen, "queueLength", len(s.queue))
	s.cond.Broadcast()
}

// Invalidate supersedes all queued and in-flight turns. Used on flow reset or
// navigation away so a late-arriving resolution cannot write into a stale
// context.
func (s *Sequencer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	dropped := len(s.queue)
	s.queue = nil
	slog.Debug("sequencer.Invalidate: generation bumped", "generation", s.gen, "droppedQueued", dropped)
	s.cond.Broadcast()
}

// Generation returns the current flow generation.
func (s *Sequencer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// WaitIdle blocks until the queue is empty and no turn is in flight.
func (s *Sequencer) WaitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for (len(s.queue) > 0 || s.inFlight) && !s.closed {
		s.cond.Wait()
	}
}

// Close stops the scheduler loop. Queued turns are discarded.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
	s.cond.Broadcast()
}

func (s *Sequencer) loop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		it := s.queue[0]
		s.queue = s.queue[1:]
		if it.gen != s.gen {
			slog.Debug("sequencer.loop: dropping stale queued turn", "turnGeneration", it.gen, "generation", s.gen)
			s.cond.Broadcast()
			s.mu.Unlock()
			continue
		}
		s.inFlight = true
		s.mu.Unlock()

		s.reveal(it)

		s.mu.Lock()
		s.inFlight = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// reveal waits out the turn's chained delay, resolves its producer with the
// composing indicator visible, and appends the result unless the generation
// moved on while the producer was in flight.
func (s *Sequencer) reveal(it item) {
	s.tl.SetComposing(true)
	defer s.tl.SetComposing(false)

	s.clock.Wait(it.turn.Delay)

	msg, err := it.turn.Produce()
	if err != nil {
		// Producers encapsulate their own fallback text; an error here means
		// the turn has nothing to say and is skipped.
		slog.Error("sequencer.reveal: turn producer failed, skipping turn", "error", err)
		return
	}

	s.mu.Lock()
	stale := it.gen != s.gen
	s.mu.Unlock()
	if stale {
		slog.Debug("sequencer.reveal: dropping late resolution from superseded generation", "turnGeneration", it.gen)
		return
	}
	s.tl.Append(msg)
}

package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkease-service/internal/domain/parking"
)

func record(id uuid.UUID, plate string) *parking.Record {
	return &parking.Record{
		ID:      id,
		NoPlate: plate,
		TimeIn:  "9:15:00 AM",
		BlockID: "0x12ab34cd",
	}
}

// scriptedFetch replays a fixed sequence of fetch outcomes, one per tick.
type scriptedFetch struct {
	outcomes []func() (*parking.Record, error)
	pos      int
}

func (s *scriptedFetch) next(context.Context) (*parking.Record, error) {
	if s.pos >= len(s.outcomes) {
		return nil, nil
	}
	out := s.outcomes[s.pos]
	s.pos++
	return out()
}

func ok(r *parking.Record) func() (*parking.Record, error) {
	return func() (*parking.Record, error) { return r, nil }
}

func fail(err error) func() (*parking.Record, error) {
	return func() (*parking.Record, error) { return nil, err }
}

func TestTickEmitsOncePerIDChange(t *testing.T) {
	a := record(uuid.New(), "AAA111")
	b := record(uuid.New(), "BBB222")
	c := record(uuid.New(), "CCC333")

	fetch := &scriptedFetch{outcomes: []func() (*parking.Record, error){
		ok(a), ok(a), ok(b), ok(b), ok(c),
	}}

	var events []NewArrival
	p := NewPoller(time.Second, fetch.next, func(e NewArrival) {
		events = append(events, e)
	}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		p.tick(context.Background())
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (A->B, B->C)", len(events))
	}
	if events[0].Plate != "BBB222" || events[1].Plate != "CCC333" {
		t.Errorf("events = %+v", events)
	}
}

func TestTickFirstObservationNeverEmits(t *testing.T) {
	fetch := &scriptedFetch{outcomes: []func() (*parking.Record, error){
		ok(record(uuid.New(), "AAA111")),
	}}

	fired := false
	p := NewPoller(time.Second, fetch.next, func(NewArrival) { fired = true }, zerolog.Nop())

	p.tick(context.Background())
	if fired {
		t.Error("first observation must not emit an event")
	}
	if !p.hasLast {
		t.Error("first observation must seed the last-seen id")
	}
}

func TestTickFetchFailureKeepsState(t *testing.T) {
	a := record(uuid.New(), "AAA111")
	b := record(uuid.New(), "BBB222")

	fetch := &scriptedFetch{outcomes: []func() (*parking.Record, error){
		ok(a),
		fail(errors.New("store down")),
		ok(b),
	}}

	var events []NewArrival
	p := NewPoller(time.Second, fetch.next, func(e NewArrival) {
		events = append(events, e)
	}, zerolog.Nop())

	p.tick(context.Background())
	p.tick(context.Background())
	if p.lastID != a.ID {
		t.Errorf("failed tick must not change the remembered id")
	}

	p.tick(context.Background())
	if len(events) != 1 || events[0].Plate != "BBB222" {
		t.Errorf("events = %+v, want single BBB222 arrival", events)
	}
}

func TestTickEmptyStore(t *testing.T) {
	a := record(uuid.New(), "AAA111")
	fetch := &scriptedFetch{outcomes: []func() (*parking.Record, error){
		ok(nil),
		ok(a),
	}}

	fired := false
	p := NewPoller(time.Second, fetch.next, func(NewArrival) { fired = true }, zerolog.Nop())

	p.tick(context.Background())
	if p.hasLast {
		t.Error("empty store must not seed state")
	}

	p.tick(context.Background())
	if fired {
		t.Error("first real record must not emit")
	}
	if p.lastID != a.ID {
		t.Error("first real record must seed the last-seen id")
	}
}

func TestStartDuringStopDoesNotOverlapLoops(t *testing.T) {
	var inFlight atomic.Int32
	var overlapped atomic.Bool
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	fetch := func(context.Context) (*parking.Record, error) {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer inFlight.Add(-1)

		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}

	p := NewPoller(time.Millisecond, fetch, func(NewArrival) {}, zerolog.Nop())

	p.Start()
	<-entered // a tick is now blocked inside fetch

	stopDone := make(chan struct{})
	go func() {
		p.Stop()
		close(stopDone)
	}()

	startDone := make(chan struct{})
	go func() {
		p.Start()
		close(startDone)
	}()

	// Let both calls contend on the blocked tick before it is released.
	time.Sleep(10 * time.Millisecond)
	close(release)

	<-stopDone
	<-startDone
	p.Stop()

	if overlapped.Load() {
		t.Error("two polling loops fetched concurrently")
	}
}

func TestStartStop(t *testing.T) {
	var fetches atomic.Int64
	fetch := func(context.Context) (*parking.Record, error) {
		fetches.Add(1)
		return nil, nil
	}

	p := NewPoller(5*time.Millisecond, fetch, func(NewArrival) {}, zerolog.Nop())

	p.Start()
	p.Start() // second Start is a no-op

	deadline := time.After(2 * time.Second)
	for fetches.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("poller never ticked")
		case <-time.After(time.Millisecond):
		}
	}

	p.Stop()
	p.Stop() // second Stop is a no-op

	settled := fetches.Load()
	time.Sleep(30 * time.Millisecond)
	if fetches.Load() != settled {
		t.Error("poller kept ticking after Stop")
	}

	// Restartable after Stop.
	p.Start()
	restart := time.After(2 * time.Second)
	for fetches.Load() == settled {
		select {
		case <-restart:
			t.Fatal("poller did not resume after restart")
		case <-time.After(time.Millisecond):
		}
	}
	p.Stop()
}

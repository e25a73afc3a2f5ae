// Package notify implements the new-arrival detection loop: a periodic
// read-and-compare over the record store, not a push channel.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkease-service/internal/domain/parking"
)

// NewArrival is emitted once per observed change of the newest record.
type NewArrival struct {
	Plate   string
	TimeIn  string
	BlockID string
}

// Fetch returns the current newest record, or nil on an empty store.
type Fetch func(ctx context.Context) (*parking.Record, error)

// Poller watches the store on a fixed interval and invokes the callback when
// the newest record's id changes. The first successful observation only
// seeds the state and never emits. Fetch failures are logged and leave the
// state untouched. The timer is re-armed only after a tick's fetch has
// completed, so ticks never overlap even when the fetch outlasts the
// interval.
type Poller struct {
	interval time.Duration
	fetch    Fetch
	onNew    func(NewArrival)
	log      zerolog.Logger

	lastID  uuid.UUID
	hasLast bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPoller(interval time.Duration, fetch Fetch, onNew func(NewArrival), log zerolog.Logger) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		onNew:    onNew,
		log:      log,
	}
}

// Start launches the polling loop. Calling Start on a running poller is a
// no-op; a stopped poller can be started again and keeps its last-seen id.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(ctx, p.done)
}

// Stop cancels the loop, releases the pending timer, and waits for the
// current tick (if any) to finish. The mutex is held through the wait so a
// concurrent Start cannot launch a second loop while the old one is still
// draining; the loop itself never takes the mutex.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false

	p.cancel()
	<-p.done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	record, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("poll for new records failed")
		}
		return
	}
	if record == nil {
		return
	}

	if p.hasLast && record.ID != p.lastID {
		p.onNew(NewArrival{
			Plate:   record.NoPlate,
			TimeIn:  record.TimeIn,
			BlockID: record.BlockID,
		})
	}

	p.lastID = record.ID
	p.hasLast = true
}

package reminder

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultPollInterval is how often the poller checks for due reminders.
const DefaultPollInterval = 15 * time.Second

// Deliverer sends one due reminder to its channel.
type Deliverer func(ctx context.Context, r Reminder) error

// Poller drains due reminders on a fixed interval and delivers them.
type Poller struct {
	store    Store
	deliver  Deliverer
	interval time.Duration
	now      func() time.Time
	onResult func(Reminder, error)
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(store Store, deliver Deliverer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		store:    store,
		deliver:  deliver,
		interval: interval,
		now:      time.Now,
	}
}

// OnResult registers a callback invoked after each delivery attempt.
func (p *Poller) OnResult(fn func(Reminder, error)) {
	p.onResult = fn
}

// Run ticks until ctx is cancelled. The first check happens immediately.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[reminder] poller started (every %s)", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			log.Println("[reminder] poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick pops due reminders and delivers each independently.
// Reminders are removed from the store whether or not delivery succeeds.
func (p *Poller) Tick(ctx context.Context) (delivered, failed int) {
	due, err := p.store.PopDue(ctx, p.now().UTC())
	if err != nil {
		log.Printf("[reminder] error in reminder loop: %v", err)
		return 0, 0
	}

	for _, r := range due {
		err := p.deliverOne(ctx, r)
		if err != nil {
			failed++
			log.Printf("[reminder] failed to send reminder %s: %v", r.ID, err)
		} else {
			delivered++
		}
		if p.onResult != nil {
			p.onResult(r, err)
		}
	}
	return delivered, failed
}

func (p *Poller) deliverOne(ctx context.Context, r Reminder) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic delivering reminder: %v", rec)
		}
	}()
	return p.deliver(ctx, r)
}

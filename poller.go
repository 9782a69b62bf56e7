package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

type snapshotSource interface {
	Collect(ctx context.Context) (string, error)
}

// Poller is the only writer to the Broadcaster. A failed cycle is logged
// and skipped; the next tick is the retry.
type Poller struct {
	source   snapshotSource
	bc       *Broadcaster
	interval time.Duration
	log      zerolog.Logger
}

func newPoller(source snapshotSource, bc *Broadcaster, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		bc:       bc,
		interval: interval,
		log:      log,
	}
}

// Run polls immediately and then once per interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().Dur("interval", p.interval).Msg("acquisition loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("acquisition loop stopped")
			return nil
		case <-timer.C:
			p.poll(ctx)
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	snapshot, err := p.source.Collect(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("collect snapshot")
		return
	}

	p.bc.Publish(snapshot)
	p.log.Debug().
		Str("size", humanize.Bytes(uint64(len(snapshot)))).
		Dur("took", time.Since(start)).
		Int("subscribers", p.bc.Subscribers()).
		Msg("snapshot published")
}

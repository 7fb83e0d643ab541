// Delivers sealed batches to the sink with retries and advances the checkpoint on acknowledgement
package uploader

import (
	"context"
	"fmt"
	"math/rand/v2"
	"santasleigh/internal/framing"
	"santasleigh/internal/global"
	"santasleigh/internal/spill"
	"time"
)

// spillStore may be nil only with the drop policy
func New(cfg Config, sink Sink, in Input, committer Committer, spillStore *spill.Store) (new *Uploader, err error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = global.DefaultMaxAttempts
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = global.DefaultMaxElapsed
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = global.DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = global.DefaultMaxBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.ReplayInterval <= 0 {
		cfg.ReplayInterval = cfg.MaxBackoff
	}
	if cfg.Encoding == "" {
		cfg.Encoding = framing.Identity
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySpill
	}

	switch cfg.Policy {
	case PolicyDrop:
	case PolicySpill:
		if spillStore == nil {
			err = fmt.Errorf("spill policy requires a spill store")
			return
		}
	default:
		err = fmt.Errorf("unknown failure policy %q", cfg.Policy)
		return
	}

	new = &Uploader{
		Namespace:   []string{global.NSUploader},
		cfg:         cfg,
		sink:        sink,
		in:          in,
		committer:   committer,
		spill:       spillStore,
		pending:     newPendingSet(),
		now:         time.Now,
		jitter:      fullJitter,
		sleep:       sleepContext,
		quarantined: make(map[string]struct{}),
	}
	return
}

// Uniform in [0, ceiling]
func fullJitter(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return 0
	}
	return rand.N(ceiling + 1)
}

func sleepContext(ctx context.Context, delay time.Duration) (err error) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
	}
	return
}

// Capped exponential ceiling for the given attempt number (1-based)
func (uploader *Uploader) backoffCeiling(attempt int) (ceiling time.Duration) {
	ceiling = uploader.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		ceiling *= 2
		if ceiling >= uploader.cfg.MaxBackoff || ceiling <= 0 {
			return uploader.cfg.MaxBackoff
		}
	}
	ceiling = min(ceiling, uploader.cfg.MaxBackoff)
	return
}

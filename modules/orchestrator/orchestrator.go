package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"storyboard-server/modules/busy"
	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/notify"
	"storyboard-server/modules/common/storage"
	"storyboard-server/modules/progress"
	"storyboard-server/modules/prompt"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/store"
)

// Global busy flag keys
const (
	KeyGeneratingBlueprint = "generating_blueprint"
	KeyGeneratingScenes    = "generating_scenes"
	KeyBatchGenerating     = "batch_generating"
	KeyGeneratingRefImages = "generating_reference_images"
)

// Orchestrator wires the store, busy tracker, progress reporter and provider
// registry into the generation operations the UI calls
type Orchestrator struct {
	store    *store.Store
	busy     *busy.Tracker
	progress *progress.Reporter
	registry *provider.Registry
	synth    *prompt.Synthesizer
	assets   *storage.Client
	notifier notify.Notifier

	rateLimitRetryDelay time.Duration
	sleep               func(time.Duration) // swappable in tests
}

// Options - construction knobs beyond the required collaborators
type Options struct {
	Assets              *storage.Client
	Notifier            notify.Notifier
	RateLimitRetryDelay time.Duration
}

func New(st *store.Store, tracker *busy.Tracker, reporter *progress.Reporter, registry *provider.Registry, synth *prompt.Synthesizer, opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.RateLimitRetryDelay <= 0 {
		opts.RateLimitRetryDelay = 10 * time.Second
	}
	return &Orchestrator{
		store:               st,
		busy:                tracker,
		progress:            reporter,
		registry:            registry,
		synth:               synth,
		assets:              opts.Assets,
		notifier:            opts.Notifier,
		rateLimitRetryDelay: opts.RateLimitRetryDelay,
		sleep:               time.Sleep,
	}
}

// Store - the canonical state, exposed for handlers
func (o *Orchestrator) Store() *store.Store { return o.store }

// Busy - the busy tracker, exposed for handlers
func (o *Orchestrator) Busy() *busy.Tracker { return o.busy }

// runWithFallback runs call against the preferred provider; on failure, if the
// alternate is configured and ready, it notifies the user once and tries the
// alternate. Without a usable alternate the original error propagates.
func runWithFallback[P comparable, T any](
	ctx context.Context,
	o *Orchestrator,
	pair provider.Pair[P],
	operation string,
	call func(context.Context, P) (T, error),
) (T, error) {
	var none P
	if pair.Preferred == none {
		var zero T
		return zero, fmt.Errorf("%s is unavailable: no provider configured", operation)
	}

	result, err := call(ctx, pair.Preferred)
	if err == nil {
		return result, nil
	}

	kind := apierr.Classify(err)
	log.Printf("❌ %s failed on %s (%s): %v", operation, providerName(pair.Preferred), kind, err)

	if !pair.AlternateReady() {
		var zero T
		return zero, err
	}

	o.notifier.Notify(fmt.Sprintf("%s: switching to backup provider %s after a problem with %s.",
		operation, providerName(pair.Alternate), providerName(pair.Preferred)))
	log.Printf("🔄 %s: falling back to %s", operation, providerName(pair.Alternate))

	result, err = call(ctx, pair.Alternate)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func providerName(p any) string {
	if n, ok := p.(interface{ Name() string }); ok && n != nil {
		return n.Name()
	}
	return "unknown"
}

package progress

import (
	"context"
	"log"
	"sync"
	"time"
)

// Progress - live counters for a running batch. ETASeconds is a linear
// extrapolation, remaining × elapsed/completed, 0 until the first item settles.
type Progress struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	StartedAt  time.Time `json:"startedAt"`
	ETASeconds float64   `json:"etaSeconds"`
}

// BusyFlags - the subset of the busy tracker a batch needs
type BusyFlags interface {
	SetGlobalBusy(key string)
	ClearGlobalBusy(key string)
}

// Reporter drives fan-out batches and publishes progress after every item
// settles. Concurrency 0 launches every item at once; a positive value caps
// in-flight items with a semaphore.
type Reporter struct {
	busy        BusyFlags
	onChange    func(*Progress)
	now         func() time.Time
	concurrency int

	mu      sync.Mutex
	current map[string]*Progress
}

// New - reporter bound to the busy tracker. onChange receives the updated
// progress after every settle and nil when the batch tears down.
func New(busy BusyFlags, concurrency int, onChange func(*Progress)) *Reporter {
	if onChange == nil {
		onChange = func(*Progress) {}
	}
	return &Reporter{
		busy:        busy,
		onChange:    onChange,
		now:         time.Now,
		concurrency: concurrency,
		current:     map[string]*Progress{},
	}
}

// Current - copy of the live progress for a key, nil when no batch is running
func (r *Reporter) Current(key string) *Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.current[key]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// RunBatch runs op for every index in [0, count) and blocks until all settle.
// Item errors are logged and counted but never abort sibling items; every
// index gets its attempt. Returns the number of failed items. A count of 0
// returns immediately without touching busy state.
func (r *Reporter) RunBatch(ctx context.Context, key, label string, count int, op func(ctx context.Context, i int) error) int {
	if count == 0 {
		return 0
	}

	r.busy.SetGlobalBusy(key)
	defer r.busy.ClearGlobalBusy(key)

	start := r.now()
	r.publish(key, &Progress{
		Key:       key,
		Label:     label,
		Total:     count,
		StartedAt: start,
	})
	defer r.teardown(key)

	log.Printf("🚀 Batch %s started: %d items (%s)", key, count, label)

	var sem chan struct{}
	if r.concurrency > 0 {
		sem = make(chan struct{}, r.concurrency)
	}

	var wg sync.WaitGroup
	var failMu sync.Mutex
	failed := 0

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			if err := op(ctx, i); err != nil {
				log.Printf("❌ Batch %s item %d failed: %v", key, i, err)
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
			r.settle(key)
		}(i)
	}

	wg.Wait()
	log.Printf("✅ Batch %s finished: %d/%d succeeded", key, count-failed, count)
	return failed
}

// settle - one item done (success or failure); recompute ETA and notify
func (r *Reporter) settle(key string) {
	r.mu.Lock()
	p, ok := r.current[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	p.Completed++
	elapsed := r.now().Sub(p.StartedAt).Seconds()
	remaining := p.Total - p.Completed
	if p.Completed > 0 && remaining > 0 {
		p.ETASeconds = float64(remaining) * elapsed / float64(p.Completed)
	} else {
		p.ETASeconds = 0
	}
	cp := *p
	r.mu.Unlock()

	r.onChange(&cp)
}

func (r *Reporter) publish(key string, p *Progress) {
	r.mu.Lock()
	r.current[key] = p
	cp := *p
	r.mu.Unlock()
	r.onChange(&cp)
}

func (r *Reporter) teardown(key string) {
	r.mu.Lock()
	delete(r.current, key)
	r.mu.Unlock()
	r.onChange(nil)
}

package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBusy struct {
	mu    sync.Mutex
	flags map[string]bool
	sets  int
}

func newFakeBusy() *fakeBusy {
	return &fakeBusy{flags: map[string]bool{}}
}

func (f *fakeBusy) SetGlobalBusy(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[key] = true
	f.sets++
}

func (f *fakeBusy) ClearGlobalBusy(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, key)
}

func (f *fakeBusy) isSet(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[key]
}

func TestRunBatchEveryItemGetsItsAttempt(t *testing.T) {
	r := New(newFakeBusy(), 0, nil)

	var attempted int32
	failed := r.RunBatch(context.Background(), "batch", "test", 5, func(_ context.Context, i int) error {
		atomic.AddInt32(&attempted, 1)
		if i%2 == 0 {
			return errors.New("odd one out")
		}
		return nil
	})

	assert.Equal(t, int32(5), atomic.LoadInt32(&attempted))
	assert.Equal(t, 3, failed)
}

func TestRunBatchZeroCountIsNoOp(t *testing.T) {
	busy := newFakeBusy()
	events := 0
	r := New(busy, 0, func(*Progress) { events++ })

	failed := r.RunBatch(context.Background(), "batch", "empty", 0, func(context.Context, int) error {
		t.Fatal("op must not run")
		return nil
	})

	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, events)
	assert.Equal(t, 0, busy.sets)
}

func TestRunBatchGlobalBusyLifecycle(t *testing.T) {
	busy := newFakeBusy()
	r := New(busy, 0, nil)

	r.RunBatch(context.Background(), "batch", "test", 2, func(context.Context, int) error {
		assert.True(t, busy.isSet("batch"))
		return nil
	})

	assert.False(t, busy.isSet("batch"))
}

func TestRunBatchConcurrencyCap(t *testing.T) {
	r := New(newFakeBusy(), 2, nil)

	var inFlight, peak int32
	r.RunBatch(context.Background(), "batch", "capped", 8, func(context.Context, int) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunBatchPublishesProgressAndTearsDown(t *testing.T) {
	var mu sync.Mutex
	var events []*Progress
	r := New(newFakeBusy(), 1, func(p *Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p == nil {
			events = append(events, nil)
			return
		}
		cp := *p
		events = append(events, &cp)
	})

	r.RunBatch(context.Background(), "batch", "three items", 3, func(context.Context, int) error {
		return nil
	})

	// initial publish + one per settle + nil teardown
	require.Len(t, events, 5)
	assert.Equal(t, 0, events[0].Completed)
	assert.Equal(t, 3, events[0].Total)
	assert.Equal(t, "three items", events[0].Label)
	assert.Equal(t, 3, events[3].Completed)
	assert.Nil(t, events[4])

	assert.Nil(t, r.Current("batch"))
}

func TestETAIsLinearExtrapolation(t *testing.T) {
	clock := time.Unix(1000, 0)
	var mu sync.Mutex
	var etas []float64

	r := New(newFakeBusy(), 1, func(p *Progress) {
		if p == nil {
			return
		}
		mu.Lock()
		etas = append(etas, p.ETASeconds)
		mu.Unlock()
	})
	r.now = func() time.Time {
		// each call advances 10s: start, then one per settle
		clock = clock.Add(10 * time.Second)
		return clock
	}

	r.RunBatch(context.Background(), "batch", "eta", 4, func(context.Context, int) error {
		return nil
	})

	// settle k sees elapsed = 10k seconds, completed = k, remaining = 4-k,
	// so ETA = (4-k) * 10. The initial publish reports 0.
	require.Len(t, etas, 5)
	assert.Equal(t, []float64{0, 30, 20, 10, 0}, etas)
}

func TestCurrentReturnsCopy(t *testing.T) {
	r := New(newFakeBusy(), 0, nil)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.RunBatch(context.Background(), "batch", "live", 1, func(context.Context, int) error {
			<-release
			return nil
		})
	}()

	// wait for the initial publish
	var live *Progress
	for i := 0; i < 200; i++ {
		if live = r.Current("batch"); live != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.NotNil(t, live)

	live.Completed = 99
	again := r.Current("batch")
	require.NotNil(t, again)
	assert.Equal(t, 0, again.Completed)

	close(release)
	<-done
}

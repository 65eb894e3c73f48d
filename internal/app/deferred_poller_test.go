package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type countingProcessor struct {
	calls atomic.Int32
	seen  chan time.Time
	err   error
}

func (p *countingProcessor) ProcessDeferred(_ context.Context, now time.Time) (int, error) {
	p.calls.Add(1)
	select {
	case p.seen <- now:
	default:
	}
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

func TestRunDeferredPollerTicksUntilCancelled(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"sends", nil},
		{"keeps going after errors", errors.New("redis down")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &countingProcessor{seen: make(chan time.Time, 1), err: tc.err}
			fixed := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				runDeferredPoller(ctx, logger.Nop(), p, 5*time.Millisecond, func() time.Time { return fixed })
				close(done)
			}()

			for i := 0; i < 2; i++ {
				select {
				case got := <-p.seen:
					if !got.Equal(fixed) {
						t.Fatalf("now: want=%v got=%v", fixed, got)
					}
				case <-time.After(2 * time.Second):
					t.Fatalf("poller did not tick")
				}
			}
			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("poller did not stop after cancel")
			}
			if p.calls.Load() < 2 {
				t.Fatalf("calls: want>=2 got=%d", p.calls.Load())
			}
		})
	}
}

func TestRunDeferredPollerNoopWithoutInterval(t *testing.T) {
	p := &countingProcessor{seen: make(chan time.Time, 1)}
	runDeferredPoller(context.Background(), logger.Nop(), p, 0, nil)
	if p.calls.Load() != 0 {
		t.Fatalf("expected no calls, got %d", p.calls.Load())
	}
}

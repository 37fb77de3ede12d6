package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTasks(t *testing.T) {
	p := New(3)
	defer p.Shutdown(context.Background())

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if got := count.Load(); got != 20 {
		t.Fatalf("ran %d tasks, want 20", got)
	}
}

func TestSubmitWaitPropagatesError(t *testing.T) {
	p := New(1)
	defer p.Shutdown(context.Background())

	wantErr := errors.New("boom")
	if err := p.SubmitWait(func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("SubmitWait err = %v, want %v", err, wantErr)
	}
	if err := p.SubmitWait(func() error { return nil }); err != nil {
		t.Fatalf("SubmitWait err = %v, want nil", err)
	}
}

func TestShutdownRejectsNewTasks(t *testing.T) {
	p := New(2)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit after shutdown = %v, want ErrPoolClosed", err)
	}
}

func TestShutdownWaitsForInflight(t *testing.T) {
	p := New(1)

	started := make(chan struct{})
	var finished atomic.Bool
	_ = p.Submit(func() {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !finished.Load() {
		t.Fatal("Shutdown returned before in-flight task completed")
	}
}

func TestShutdownHonorsContext(t *testing.T) {
	p := New(1)

	block := make(chan struct{})
	started := make(chan struct{})
	_ = p.Submit(func() {
		close(started)
		<-block
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown err = %v, want deadline exceeded", err)
	}
	close(block)
}

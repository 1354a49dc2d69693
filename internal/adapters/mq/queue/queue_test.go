package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/lineup/internal/domain/model"
)

func newJob(id string) *model.Job {
	job, _ := newJobWithReply(id)
	return job
}

func newJobWithReply(id string) (*model.Job, <-chan model.JobResult) {
	reply := make(chan model.JobResult, 1)
	return &model.Job{ID: id, TeamID: "team", EnqueuedAt: time.Now(), Reply: reply}, reply
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, newJob("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.ID != "job1" {
		t.Errorf("expected job1, got %v", j.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, newJob(fmt.Sprintf("job%d", i))); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	if err := q.Enqueue(ctx, newJob("overflow")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_StampsEnqueueTime(t *testing.T) {
	at := time.Date(2024, 5, 4, 18, 0, 0, 0, time.UTC)
	q := NewInMemoryQueue(WithCapacity(2), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	fresh := &model.Job{ID: "fresh"}
	if err := q.Enqueue(ctx, fresh); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if !fresh.EnqueuedAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, fresh.EnqueuedAt)
	}

	earlier := at.Add(-time.Minute)
	stamped := &model.Job{ID: "stamped", EnqueuedAt: earlier}
	if err := q.Enqueue(ctx, stamped); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if !stamped.EnqueuedAt.Equal(earlier) {
		t.Errorf("existing stamp overwritten: %v", stamped.EnqueuedAt)
	}
}

func TestInMemoryQueue_CancelledEnqueue(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, newJob("job")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	producers, perProducer := 10, 100

	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for range q.Dequeue(ctx) {
				consumed.Done()
			}
		}()
	}

	var produced sync.WaitGroup
	for i := 0; i < producers; i++ {
		produced.Add(1)
		go func(id int) {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				job := newJob(fmt.Sprintf("job%d_%d", id, j))
				for q.Enqueue(ctx, job) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	produced.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers did not drain the queue")
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, newJob("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, newJob("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// waiting jobs are still delivered, then the channel closes
	ch := q.Dequeue(ctx)
	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(got) != 1 || got[0] != "job1" {
					t.Errorf("expected [job1] drained, got %v", got)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			got = append(got, j.ID)
		case <-timeout:
			t.Fatal("expected dequeue channel to close")
		}
	}
}

func TestInMemoryQueue_AbandonedJobIsAnswered(t *testing.T) {
	q := NewInMemoryQueue()
	job, reply := newJobWithReply("job")
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = q.Dequeue(ctx)

	select {
	case res := <-reply:
		if !errors.Is(res.Err, model.ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("abandoned job was not answered")
	}
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingUpdater struct {
	calls int
	order *[]string
}

func (u *countingUpdater) Update() {
	u.calls++
	if u.order != nil {
		*u.order = append(*u.order, "update")
	}
}

func TestScheduler_RunsPostedWorkInOrderBeforeUpdaters(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.AddUpdater(&countingUpdater{order: &order})

	s.Post(func() { order = append(order, "a") })
	s.Post(func() { order = append(order, "b") })
	assert.Equal(t, 2, s.Pending())

	s.Tick()

	assert.Equal(t, []string{"a", "b", "update"}, order)
	assert.Zero(t, s.Pending())
}

func TestScheduler_WorkPostedDuringTickRunsNextTick(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.Post(func() {
		s.Post(func() { ran++ })
	})

	s.Tick()
	assert.Zero(t, ran)

	s.Tick()
	assert.Equal(t, 1, ran)
}

func TestScheduler_ConcurrentPost(t *testing.T) {
	s := NewScheduler()
	var wg sync.WaitGroup
	total := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Post(func() { total++ })
		}()
	}
	wg.Wait()
	s.Tick()

	assert.Equal(t, 50, total)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewScheduler()
	u := &countingUpdater{}
	s.AddUpdater(u)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Greater(t, u.calls, 0)
}

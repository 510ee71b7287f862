package cpo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

func TestSimpleLockMutualExclusion(t *testing.T) {
	l := NewSimpleLock("excl")
	var inCriticalSection int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.WithLock(func() {
				inCriticalSection++
				assert.Equal(t, int32(1), inCriticalSection)
				inCriticalSection--
			})
		}()
	}
	wg.Wait()
}

func TestSimpleLockWithLockReleasesOnPanic(t *testing.T) {
	l := NewSimpleLock("panicky")
	func() {
		defer func() { _ = recover() }()
		l.WithLock(func() { panic("boom") })
	}()
	assert.True(t, l.TryLock(), "lock should be free after a panicking body")
}

func TestSimpleLockUnlockOfUnlockedPanics(t *testing.T) {
	l := NewSimpleLock("double-unlock")
	l.Lock()
	l.Unlock()
	assert.Panics(t, func() { l.Unlock() })
}

func TestSimpleLockTryLockForSucceedsWhenFree(t *testing.T) {
	l := NewSimpleLock("try-ok")
	ran := false
	l.TryLockFor(clockz.NewFakeClock(), time.Hour, func() { ran = true }, func() { t.Fatal("otherwise should not run") })
	assert.True(t, ran)
	assert.True(t, l.TryLock(), "lock should be released after body returns")
}

func TestSimpleLockTryLockForRunsOtherwiseOnTimeout(t *testing.T) {
	l := NewSimpleLock("try-timeout")
	l.Lock()
	clock := clockz.NewFakeClock()
	otherwiseRan := make(chan struct{})
	go l.TryLockFor(clock, 10*time.Millisecond, func() {
		t.Error("body should not run: lock is held")
	}, func() { close(otherwiseRan) })

	time.Sleep(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	select {
	case <-otherwiseRan:
	case <-time.After(time.Second):
		t.Fatal("TryLockFor did not time out")
	}
}

func TestMonitorWaitSignal(t *testing.T) {
	m := NewMonitor("cond")
	ready := false
	woken := make(chan struct{})

	go func() {
		m.Lock()
		for !ready {
			m.Wait("consumer")
		}
		m.Unlock()
		close(woken)
	}()

	time.Sleep(10 * time.Millisecond)
	m.WithLock(func() {
		ready = true
		m.Signal()
	})

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("Wait was not woken by Signal")
	}
}

func TestMonitorWaitingForMatchesRecordedWaiter(t *testing.T) {
	m := NewMonitor("waiting-for")
	done := make(chan struct{})

	go func() {
		defer close(done)
		m.Lock()
		defer m.Unlock()
		m.Wait("reader")
	}()

	require.Eventually(t, func() bool {
		return m.WaitingFor(func(tag any) bool { return tag == "reader" })
	}, time.Second, time.Millisecond)

	assert.False(t, m.WaitingFor(func(tag any) bool { return tag == "writer" }))

	m.WithLock(func() { m.Broadcast() })
	<-done
}

package cpo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneOneRendezvous(t *testing.T) {
	ch := NewOneOne[int]("rv")
	received := make(chan int, 1)
	go func() {
		v, err := ch.Read(context.Background())
		require.NoError(t, err)
		received <- v
	}()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, ch.Write(context.Background(), 7))
	assert.Equal(t, 7, <-received)
	assert.EqualValues(t, 1, ch.Reads())
	assert.EqualValues(t, 1, ch.Writes())
}

func TestOneOneSecondWriterIsOvertake(t *testing.T) {
	ch := NewOneOne[int]("single-writer")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ch.Write(context.Background(), 1)
	}()
	time.Sleep(10 * time.Millisecond)
	err := ch.Write(context.Background(), 2)
	assert.ErrorIs(t, err, ErrOvertaken)

	_, _ = ch.Read(context.Background())
	wg.Wait()
}

func TestOneOneCloseWakesBlockedReader(t *testing.T) {
	ch := NewOneOne[int]("closeable")
	errCh := make(chan error, 1)
	go func() {
		_, err := ch.Read(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ch.Close())
	select {
	case err := <-errCh:
		assert.True(t, IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock on Close")
	}
}

func TestManyOneQueuesMultipleWriters(t *testing.T) {
	ch := NewManyOne[int]("fan-in")
	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, ch.Write(context.Background(), i))
		}()
	}
	seen := make(map[int]bool)
	for i := 0; i < writers; i++ {
		v, err := ch.Read(context.Background())
		require.NoError(t, err)
		seen[v] = true
	}
	wg.Wait()
	assert.Len(t, seen, writers)
}

func TestReadApplyRunsWhileWriterStillParked(t *testing.T) {
	ch := NewOneOne[int]("extended")
	writeReturned := make(chan struct{})
	go func() {
		require.NoError(t, ch.Write(context.Background(), 3))
		close(writeReturned)
	}()

	result, err := ch.ReadApply(context.Background(), func(v int) (int, error) {
		select {
		case <-writeReturned:
			t.Fatal("writer returned before ReadApply's function ran")
		default:
		}
		return v * 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result)
	<-writeReturned
}

func TestN2NBufDoesNotBlockWriterUntilFull(t *testing.T) {
	b := NewN2NBuf[int]("buf", 2)
	require.NoError(t, b.Write(context.Background(), 1))
	require.NoError(t, b.Write(context.Background(), 2))

	blocked := make(chan error, 1)
	go func() { blocked <- b.Write(context.Background(), 3) }()
	select {
	case <-blocked:
		t.Fatal("third write should have blocked: buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	v, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case err := <-blocked:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("third write did not unblock after a Read freed space")
	}
}

func TestN2NBufCloseDrainsThenCloses(t *testing.T) {
	b := NewN2NBuf[int]("drain", 4)
	require.NoError(t, b.Write(context.Background(), 1))
	require.NoError(t, b.Write(context.Background(), 2))
	require.NoError(t, b.Close())

	v, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = b.Read(context.Background())
	assert.True(t, IsClosed(err))
}

func TestManyOneCloseOutWaitsForEveryRegisteredWriter(t *testing.T) {
	ch := NewManyOne[int]("fan-in-close")
	const writers = 3
	ch.AddWriter(writers) // a shared write side starts with no registered writers

	require.NoError(t, ch.CloseOut())
	require.NoError(t, ch.CloseOut())
	assert.False(t, ch.Closed(), "channel should stay open while a writer is still registered")

	readErr := make(chan error, 1)
	go func() {
		_, err := ch.Read(context.Background())
		readErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	select {
	case err := <-readErr:
		t.Fatalf("Read returned early with %v before the last writer closed out", err)
	default:
	}

	require.NoError(t, ch.CloseOut())
	assert.True(t, ch.Closed())
	select {
	case err := <-readErr:
		assert.True(t, IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock once the last writer closed out")
	}
}

func TestOneOneCloseOutClosesImmediately(t *testing.T) {
	ch := NewOneOne[int]("single-close-out")
	require.NoError(t, ch.CloseOut())
	assert.True(t, ch.Closed())
}

func TestN2NBufCloseOutWaitsForEveryRegisteredWriter(t *testing.T) {
	b := NewN2NBuf[int]("buf-close-out", 4)
	b.AddWriter(1) // two writers total

	require.NoError(t, b.Write(context.Background(), 1))
	require.NoError(t, b.CloseOut())
	assert.False(t, b.Closed(), "one writer still registered")

	v, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, b.CloseOut())
	assert.True(t, b.Closed(), "last writer closed out with the buffer already drained")
}

func TestN2NBufCloseOutDefersCloseUntilBufferDrains(t *testing.T) {
	b := NewN2NBuf[int]("buf-drain", 4)
	require.NoError(t, b.Write(context.Background(), 1))
	require.NoError(t, b.Write(context.Background(), 2))
	require.NoError(t, b.CloseOut())
	assert.False(t, b.Closed(), "buffer still has values to drain")

	v, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, b.Closed())

	v, err = b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, b.Closed(), "draining the last value after CloseOut fully closes")

	_, err = b.Read(context.Background())
	assert.True(t, IsClosed(err))
}

func TestN2NBufCloseInDiscardsBufferedValues(t *testing.T) {
	b := NewN2NBuf[int]("buf-close-in", 4)
	require.NoError(t, b.Write(context.Background(), 1))
	require.NoError(t, b.Write(context.Background(), 2))
	require.NoError(t, b.CloseIn())
	assert.True(t, b.Closed())
	assert.EqualValues(t, 0, b.Len(), "CloseIn should discard whatever was still buffered")

	_, err := b.Read(context.Background())
	assert.True(t, IsClosed(err))
}

func TestFaultyDropsWriteSilentlyAtProbabilityOne(t *testing.T) {
	ch := NewOneOne[int]("inner")
	faulty := NewFaulty[int](ch, 1.0, 1)

	readErr := make(chan error, 1)
	go func() {
		_, err := ch.Read(context.Background())
		readErr <- err
	}()

	require.NoError(t, faulty.Write(context.Background(), 1))
	require.NoError(t, ch.Close())
	select {
	case err := <-readErr:
		assert.True(t, IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("dropped write should not have reached the inner channel")
	}
}

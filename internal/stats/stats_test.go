package stats

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotReflectsAccumulatedCounters(t *testing.T) {
	s := &SessionStats{}
	s.AddBytesRead(10)
	s.AddBytesWritten(20)
	s.IncFramesSent()
	s.IncRetries()
	s.SetLastError(errors.New("boom"))

	snap := s.Snapshot()
	assert.Equal(t, uint64(10), snap.BytesRead)
	assert.Equal(t, uint64(20), snap.BytesWritten)
	assert.Equal(t, uint64(1), snap.FramesSent)
	assert.Equal(t, uint64(1), snap.Retries)
	assert.Equal(t, "boom", snap.LastError)
}

func TestSetLastErrorNilClears(t *testing.T) {
	s := &SessionStats{}
	s.SetLastError(errors.New("boom"))
	s.SetLastError(nil)
	assert.Equal(t, "", s.Snapshot().LastError)
}

func TestConcurrentUpdatesAreSafe(t *testing.T) {
	s := &SessionStats{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddBytesRead(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), s.Snapshot().BytesRead)
}

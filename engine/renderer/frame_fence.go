package renderer

import (
	"sync"
	"sync/atomic"
)

// frameFences tracks which frame-in-flight slots still have a submission executing on the GPU.
// A slot is armed when its frame is submitted and signaled from the queue's work-done callback,
// which the backend only delivers while the device is polled.
type frameFences struct {
	mu    sync.Mutex
	slots []*atomic.Bool
}

func (f *frameFences) slot(i int) *atomic.Bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.slots) <= i {
		f.slots = append(f.slots, &atomic.Bool{})
	}
	return f.slots[i]
}

// arm marks a slot busy and returns the function that signals its completion.
func (f *frameFences) arm(i int) func() {
	s := f.slot(i)
	s.Store(true)
	return func() { s.Store(false) }
}

// busy reports whether a slot's last submission is still pending.
func (f *frameFences) busy(i int) bool {
	return f.slot(i).Load()
}

// wait blocks until the slot is free, calling poll between checks.
//
// Parameters:
//   - i: the frame slot
//   - poll: advances the device so completion callbacks can run
//
// Returns:
//   - int: the number of polls it took
func (f *frameFences) wait(i int, poll func()) int {
	s := f.slot(i)
	n := 0
	for s.Load() {
		poll()
		n++
	}
	return n
}

// reset marks every slot free. Used after the device has been drained.
func (f *frameFences) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		s.Store(false)
	}
}

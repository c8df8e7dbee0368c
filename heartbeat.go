package sse

import (
	"sync"
	"time"
)

// heartbeat periodically calls beat function until stopped or until beat
// returns an error.
type heartbeat struct {
	once sync.Once
	quit chan struct{}
	done chan struct{}
}

// startHeartbeat launches heartbeat go routine. Interval must be positive.
func startHeartbeat(interval time.Duration, beat func() error) *heartbeat {
	h := &heartbeat{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.quit:
				return
			case <-ticker.C:
				// quit might be ready together with the tick,
				// do not beat on a stopped heartbeat
				select {
				case <-h.quit:
					return
				default:
				}
				if err := beat(); err != nil {
					return
				}
			}
		}
	}()

	return h
}

// stop terminates heartbeat and waits for the go routine to exit. No beats are
// started after stop returns. Calling stop multiple times is safe, but it must
// not be called from within the beat function.
func (h *heartbeat) stop() {
	h.once.Do(func() { close(h.quit) })
	<-h.done
}

// stopped reports whether heartbeat go routine has exited.
func (h *heartbeat) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

// Reaper periodically evicts connections whose transport is no longer
// alive. It is a safety net behind the normal disconnect path: a dead
// connection stays a room member for at most one interval. Eviction reuses
// the same removal path as an explicit disconnect, so user-disconnected
// presence events still fire per joined board.
type Reaper struct {
	hub      *Hub
	presence *PresenceTracker
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReaper(hub *Hub, presence *PresenceTracker, interval time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reaper{
		hub:      hub,
		presence: presence,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the reap loop. The WaitGroup is counted before the
// goroutine is scheduled, so a Stop racing a fresh Start still waits for
// the loop to exit.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("🧹 Connection reaper started with interval %v", r.interval)

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for it to finish.
func (r *Reaper) Stop() {
	r.cancel()
	r.wg.Wait()
	log.Println("🧹 Connection reaper stopped")
}

// Sweep removes every registered connection whose transport reports itself
// dead, and returns how many were evicted.
func (r *Reaper) Sweep() int {
	var stale []*Conn
	for _, conn := range r.hub.Connections() {
		if !conn.Alive() {
			stale = append(stale, conn)
		}
	}

	for _, conn := range stale {
		joined := r.hub.Remove(conn)
		conn.Close()
		r.presence.UserDisconnected(conn, joined)
	}

	if len(stale) > 0 {
		log.Printf("🧹 Cleaned up %d stale connections", len(stale))
	}
	return len(stale)
}

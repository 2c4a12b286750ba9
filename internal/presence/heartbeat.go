package presence

import (
    "context"
    "log"
    "sync"
    "time"
)

// Runner drives a heartbeat function on a fixed interval until
// stopped.  It replaces fire-and-forget intervals with an explicit
// handle owned by the view's lifecycle: start it when a live view
// activates and stop it on teardown, so no timer outlives the view
// or keeps beating for a stale participant.  Beat failures are
// logged and swallowed; a missed heartbeat must never take the view
// down.
type Runner struct {
    stop chan struct{}
    done chan struct{}
    once sync.Once
}

// StartRunner begins invoking beat every interval on a fresh
// goroutine.  Each invocation gets a context that is cancelled when
// the runner stops, so an in-flight write is abandoned rather than
// allowed to race a closed view.
func StartRunner(interval time.Duration, beat func(ctx context.Context) error) *Runner {
    r := &Runner{
        stop: make(chan struct{}),
        done: make(chan struct{}),
    }
    go func() {
        defer close(r.done)
        ctx, cancel := context.WithCancel(context.Background())
        defer cancel()
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-r.stop:
                return
            case <-ticker.C:
                if err := beat(ctx); err != nil {
                    log.Printf("heartbeat: %v", err)
                }
            }
        }
    }()
    return r
}

// Stop cancels the runner and waits for the loop to exit.  Safe to
// call more than once.
func (r *Runner) Stop() {
    r.once.Do(func() { close(r.stop) })
    <-r.done
}

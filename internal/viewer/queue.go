package viewer

import "sync"

// renderQueue serializes page renders for a single view. While a render is
// in flight, later requests replace each other so that only the most recent
// pending page is rendered; superseded pages are never drawn.
type renderQueue struct {
	mu         sync.Mutex
	inFlight   bool
	pending    int
	hasPending bool
}

// request registers a render for page. It returns true when the caller now
// owns the in-flight slot and must render, false when the page was parked
// behind the render already running.
func (q *renderQueue) request(page int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight {
		q.pending = page
		q.hasPending = true
		return false
	}
	q.inFlight = true
	return true
}

// done marks the current render finished and hands back the collapsed
// pending page, if any. The caller keeps the in-flight slot for as long as
// done keeps returning true.
func (q *renderQueue) done() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.hasPending {
		page := q.pending
		q.hasPending = false
		return page, true
	}
	q.inFlight = false
	return 0, false
}

// Package queue holds waiting support requests ordered by urgency rank,
// then arrival time. It is an in-memory derived view; queue membership is
// persisted separately so the set can be rebuilt on restart.
package queue

import (
	"sort"
	"sync"

	"github.com/soulace/support-service/internal/domain"
)

// Queue is the priority queue of waiting requests.
type Queue struct {
	mu       sync.RWMutex
	requests map[string]*domain.Request
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{requests: make(map[string]*domain.Request)}
}

// Enqueue inserts the request. Re-enqueueing the same id overwrites the
// stored entry. The queue keeps its own copy; the caller's value never
// aliases the stored one.
func (q *Queue) Enqueue(request *domain.Request) {
	q.mu.Lock()
	q.requests[request.ID] = cloneRequest(request)
	q.mu.Unlock()
}

// PeekOrdered returns the full waiting set, highest rank first, earliest
// arrival first within a rank. The matching engine scans this view rather
// than strictly popping the head, so a lower-ranked request can still match
// when no worker is compatible with the head.
func (q *Queue) PeekOrdered() []*domain.Request {
	q.mu.RLock()
	ordered := make([]*domain.Request, 0, len(q.requests))
	for _, request := range q.requests {
		ordered = append(ordered, cloneRequest(request))
	}
	q.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := ordered[i], ordered[j]
		if ri.Urgency.Rank() != rj.Urgency.Rank() {
			return ri.Urgency.Rank() > rj.Urgency.Rank()
		}
		if !ri.SubmittedAt.Equal(rj.SubmittedAt) {
			return ri.SubmittedAt.Before(rj.SubmittedAt)
		}
		return ri.ID < rj.ID
	})
	return ordered
}

// Remove takes the request out of the queue, returning it, or nil when the
// id is not queued.
func (q *Queue) Remove(requestID string) *domain.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	request, ok := q.requests[requestID]
	if !ok {
		return nil
	}
	delete(q.requests, requestID)
	return request
}

// Get returns a copy of the queued request, or nil.
func (q *Queue) Get(requestID string) *domain.Request {
	q.mu.RLock()
	defer q.mu.RUnlock()
	request, ok := q.requests[requestID]
	if !ok {
		return nil
	}
	return cloneRequest(request)
}

// AppendPending records a message sent while the request is still waiting.
// The append happens under the queue lock, so concurrent senders and a
// running match pass never share a mutable slice. Returns a copy of the
// updated request, or false when the id is not queued.
func (q *Queue) AppendPending(requestID string, message domain.PendingMessage) (*domain.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	request, ok := q.requests[requestID]
	if !ok {
		return nil, false
	}
	request.PendingMessages = append(request.PendingMessages, message)
	return cloneRequest(request), true
}

// UpgradeUrgency raises the request's urgency in place. Urgency never goes
// down; an upgrade to an equal or lower rank is a no-op. The bool reports
// whether anything changed.
func (q *Queue) UpgradeUrgency(requestID string, urgency domain.Urgency) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	request, ok := q.requests[requestID]
	if !ok {
		return false
	}
	if urgency.Rank() <= request.Urgency.Rank() {
		return false
	}
	request.Urgency = urgency
	return true
}

// Position reports the request's 1-based place in rank order, computed
// lazily against the current waiting set. Zero means not queued.
func (q *Queue) Position(requestID string) int {
	for i, request := range q.PeekOrdered() {
		if request.ID == requestID {
			return i + 1
		}
	}
	return 0
}

// Len returns the waiting count.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.requests)
}

func cloneRequest(request *domain.Request) *domain.Request {
	copied := *request
	copied.PendingMessages = append([]domain.PendingMessage(nil), request.PendingMessages...)
	return &copied
}

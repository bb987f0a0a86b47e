package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/kv"
)

// SessionRepository manages session records plus the byrequester/byworker
// index entries used for listing.
type SessionRepository interface {
	// Create writes the session and both secondary index entries in one
	// logical operation.
	Create(ctx context.Context, session *domain.Session) error
	// Save rewrites the primary record; index entries are keyed by ids
	// that never change, so they stay untouched.
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.Session, error)
	ListByWorker(ctx context.Context, workerID string) ([]domain.Session, error)
	// ListAll scans every session record; startup reconciliation uses it.
	ListAll(ctx context.Context) ([]domain.Session, error)
}

type sessionRepository struct {
	index *kv.Index
}

// NewSessionRepository builds the repository.
func NewSessionRepository(index *kv.Index) SessionRepository {
	return &sessionRepository{index: index}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Put(ctx, sessionKey(session.ID), payload, session.ID,
			byRequesterKey(session.RequesterID, session.ID),
			byWorkerKey(session.WorkerID, session.ID),
		)
	})
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Store().Set(ctx, sessionKey(session.ID), payload)
	})
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var payload []byte
	err := withRetry(ctx, func() error {
		var err error
		payload, err = r.index.Store().Get(ctx, sessionKey(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.Session, error) {
	return r.listByPrefix(ctx, byRequesterPrefix+requesterID+":")
}

func (r *sessionRepository) ListByWorker(ctx context.Context, workerID string) ([]domain.Session, error) {
	return r.listByPrefix(ctx, byWorkerPrefix+workerID+":")
}

func (r *sessionRepository) listByPrefix(ctx context.Context, prefix string) ([]domain.Session, error) {
	var payloads [][]byte
	err := withRetry(ctx, func() error {
		var err error
		payloads, err = r.index.Enumerate(ctx, prefix, sessionKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decodeSessions(payloads)
}

func (r *sessionRepository) ListAll(ctx context.Context) ([]domain.Session, error) {
	var pairs []kv.Pair
	err := withRetry(ctx, func() error {
		var err error
		pairs, err = r.index.Store().GetByPrefix(ctx, sessionKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	payloads := make([][]byte, 0, len(pairs))
	for _, pair := range pairs {
		payloads = append(payloads, pair.Value)
	}
	return decodeSessions(payloads)
}

func decodeSessions(payloads [][]byte) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0, len(payloads))
	for _, payload := range payloads {
		var session domain.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

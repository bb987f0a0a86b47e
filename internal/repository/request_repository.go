package repository

import (
	"context"
	"encoding/json"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/kv"
)

// RequestRepository manages support request records and their queue
// membership markers.
type RequestRepository interface {
	Save(ctx context.Context, request *domain.Request) error
	Get(ctx context.Context, id string) (*domain.Request, error)
	// MarkQueued records queue membership so the waiting set survives a
	// restart; UnmarkQueued removes the marker when a request is claimed
	// or cancelled.
	MarkQueued(ctx context.Context, id string) error
	UnmarkQueued(ctx context.Context, id string) error
	ListQueued(ctx context.Context) ([]domain.Request, error)
	// SetSession points the request at the session that claimed it.
	SetSession(ctx context.Context, requestID, sessionID string) error
	SessionFor(ctx context.Context, requestID string) (string, error)
}

type requestRepository struct {
	index *kv.Index
}

// NewRequestRepository builds the repository.
func NewRequestRepository(index *kv.Index) RequestRepository {
	return &requestRepository{index: index}
}

func (r *requestRepository) Save(ctx context.Context, request *domain.Request) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Store().Set(ctx, requestKey(request.ID), payload)
	})
}

func (r *requestRepository) Get(ctx context.Context, id string) (*domain.Request, error) {
	var payload []byte
	err := withRetry(ctx, func() error {
		var err error
		payload, err = r.index.Store().Get(ctx, requestKey(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	var request domain.Request
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) MarkQueued(ctx context.Context, id string) error {
	marker, err := kv.EncodePointer(id)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Store().Set(ctx, queuedKey(id), marker)
	})
}

func (r *requestRepository) UnmarkQueued(ctx context.Context, id string) error {
	return withRetry(ctx, func() error {
		return r.index.Store().Delete(ctx, queuedKey(id))
	})
}

func (r *requestRepository) ListQueued(ctx context.Context) ([]domain.Request, error) {
	var payloads [][]byte
	err := withRetry(ctx, func() error {
		var err error
		payloads, err = r.index.Enumerate(ctx, queuedKeyPrefix, requestKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	requests := make([]domain.Request, 0, len(payloads))
	for _, payload := range payloads {
		var request domain.Request
		if err := json.Unmarshal(payload, &request); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (r *requestRepository) SetSession(ctx context.Context, requestID, sessionID string) error {
	pointer, err := kv.EncodePointer(sessionID)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Store().Set(ctx, reqSessionKey(requestID), pointer)
	})
}

func (r *requestRepository) SessionFor(ctx context.Context, requestID string) (string, error) {
	var payload []byte
	err := withRetry(ctx, func() error {
		var err error
		payload, err = r.index.Store().Get(ctx, reqSessionKey(requestID))
		return err
	})
	if err != nil {
		return "", err
	}
	return kv.DecodePointer(payload)
}

package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/kv"
)

// WorkerRepository manages worker records. Every registry status change is
// written through Save, so a restart can rebuild availability from the
// store.
type WorkerRepository interface {
	Save(ctx context.Context, worker *domain.Worker) error
	Get(ctx context.Context, id string) (*domain.Worker, error)
	List(ctx context.Context) ([]domain.Worker, error)
}

type workerRepository struct {
	index *kv.Index
}

// NewWorkerRepository builds the repository.
func NewWorkerRepository(index *kv.Index) WorkerRepository {
	return &workerRepository{index: index}
}

func (r *workerRepository) Save(ctx context.Context, worker *domain.Worker) error {
	payload, err := json.Marshal(worker)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Store().Set(ctx, workerKey(worker.ID), payload)
	})
}

func (r *workerRepository) Get(ctx context.Context, id string) (*domain.Worker, error) {
	var payload []byte
	err := withRetry(ctx, func() error {
		var err error
		payload, err = r.index.Store().Get(ctx, workerKey(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	var worker domain.Worker
	if err := json.Unmarshal(payload, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepository) List(ctx context.Context) ([]domain.Worker, error) {
	var pairs []kv.Pair
	err := withRetry(ctx, func() error {
		var err error
		pairs, err = r.index.Store().GetByPrefix(ctx, workerKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	workers := make([]domain.Worker, 0, len(pairs))
	for _, pair := range pairs {
		var worker domain.Worker
		if err := json.Unmarshal(pair.Value, &worker); err != nil {
			return nil, err
		}
		workers = append(workers, worker)
	}
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].RegisteredAt.Before(workers[j].RegisteredAt)
	})
	return workers, nil
}

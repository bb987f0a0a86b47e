package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/kv"
)

// MessageRepository manages transcript messages. Messages are immutable
// once appended; ordering is carried by the Seq the session manager assigns.
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error)
}

type messageRepository struct {
	index *kv.Index
}

// NewMessageRepository builds the repository.
func NewMessageRepository(index *kv.Index) MessageRepository {
	return &messageRepository{index: index}
}

func (r *messageRepository) Append(ctx context.Context, message *domain.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return withRetry(ctx, func() error {
		return r.index.Put(ctx, messageKey(message.ID), payload, message.ID,
			bySessionKey(message.SessionID, message.Seq),
		)
	})
}

func (r *messageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var payloads [][]byte
	err := withRetry(ctx, func() error {
		var err error
		payloads, err = r.index.Enumerate(ctx, bySessionPrefix+sessionID+":", messageKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(payloads))
	for _, payload := range payloads {
		var message domain.Message
		if err := json.Unmarshal(payload, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Seq < messages[j].Seq
	})
	return messages, nil
}

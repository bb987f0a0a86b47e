package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/config"
	"github.com/soulace/support-service/internal/crisis"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/kv"
	"github.com/soulace/support-service/internal/matcher"
	"github.com/soulace/support-service/internal/queue"
	"github.com/soulace/support-service/internal/registry"
	"github.com/soulace/support-service/internal/repository"
)

var crisisPhrases = []string{"suicide", "kill myself", "end it all", "hurt myself", "can't go on"}

// stack assembles the full service graph over the in-memory store, the way
// main wires it, with a fake clock.
type stack struct {
	clk      *clock.Fake
	bus      events.Dispatcher
	queue    *queue.Queue
	registry *registry.Registry
	requests repository.RequestRepository
	sessions repository.SessionRepository
	messages repository.MessageRepository
	workers  repository.WorkerRepository
	engine   *matcher.Engine

	sessionService *SessionService
	supportService *SupportService
	workerService  *WorkerService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	return newStackOn(t, kv.NewMemoryStore())
}

func newStackOn(t *testing.T, store kv.Store) *stack {
	t.Helper()
	index := kv.NewIndex(store)
	requestRepo := repository.NewRequestRepository(index)
	workerRepo := repository.NewWorkerRepository(index)
	sessionRepo := repository.NewSessionRepository(index)
	messageRepo := repository.NewMessageRepository(index)

	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	bus := events.NewInMemoryDispatcher()
	q := queue.New()
	reg := registry.New(workerRepo)
	detector := crisis.NewPhraseDetector(crisisPhrases)
	logger := zap.NewNop()

	sessionService := NewSessionService(SessionDependencies{
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		RequestRepo: requestRepo,
		Registry:    reg,
		Dispatcher:  bus,
		Detector:    detector,
		Clock:       clk,
		Logger:      logger,
	})
	engine := matcher.NewEngine(matcher.Dependencies{
		Queue:       q,
		Registry:    reg,
		RequestRepo: requestRepo,
		SessionRepo: sessionRepo,
		WorkerRepo:  workerRepo,
		Sessions:    sessionService,
		Dispatcher:  bus,
		Clock:       clk,
		Logger:      logger,
		Tick:        time.Minute,
		AvgWindow:   5,
		DefaultWait: 5 * time.Minute,
	})
	engine.RegisterHandlers(context.Background())

	supportService := NewSupportService(SupportDependencies{
		Queue:       q,
		RequestRepo: requestRepo,
		Engine:      engine,
		Detector:    detector,
		Dispatcher:  bus,
		Clock:       clk,
		Logger:      logger,
	})
	workerService := NewWorkerService(WorkerDependencies{
		Registry:   reg,
		Dispatcher: bus,
		Clock:      clk,
		Logger:     logger,
	})

	return &stack{
		clk:            clk,
		bus:            bus,
		queue:          q,
		registry:       reg,
		requests:       requestRepo,
		sessions:       sessionRepo,
		messages:       messageRepo,
		workers:        workerRepo,
		engine:         engine,
		sessionService: sessionService,
		supportService: supportService,
		workerService:  workerService,
	}
}

// addAvailableWorker registers and brings a worker online in one step.
func (s *stack) addAvailableWorker(t *testing.T, name string, specialties, languages []string) *domain.Worker {
	t.Helper()
	ctx := context.Background()
	worker, err := s.workerService.Register(ctx, WorkerInput{
		Name:        name,
		Specialties: specialties,
		Languages:   languages,
	})
	if err != nil {
		t.Fatalf("register worker: %v", err)
	}
	if err := s.workerService.SetStatus(ctx, worker.ID, domain.WorkerStatusAvailable); err != nil {
		t.Fatalf("set worker available: %v", err)
	}
	return worker
}

// eventRecorder captures published events of the given types.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(bus events.Dispatcher, types ...events.EventType) *eventRecorder {
	rec := &eventRecorder{}
	for _, eventType := range types {
		bus.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			rec.mu.Lock()
			rec.events = append(rec.events, event)
			rec.mu.Unlock()
			return nil
		})
	}
	return rec
}

func (r *eventRecorder) count(eventType events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(eventType events.EventType) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

func responderConfig(enabled bool, delay time.Duration) config.ResponderConfig {
	return config.ResponderConfig{Enabled: enabled, DelaySeconds: int(delay / time.Second)}
}

// refusingStore rejects writes for keys under a prefix, simulating a store
// that keeps failing one kind of record.
type refusingStore struct {
	kv.Store
	prefix string
}

func (s *refusingStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, s.prefix) {
		return errors.New("write refused")
	}
	return s.Store.Set(ctx, key, value)
}

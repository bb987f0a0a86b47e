package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/api/http/handlers"
	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/crisis"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/kv"
	"github.com/soulace/support-service/internal/matcher"
	"github.com/soulace/support-service/internal/observability"
	"github.com/soulace/support-service/internal/queue"
	"github.com/soulace/support-service/internal/registry"
	"github.com/soulace/support-service/internal/repository"
	"github.com/soulace/support-service/internal/service"
	"github.com/soulace/support-service/internal/stream"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	index := kv.NewIndex(kv.NewMemoryStore())
	requestRepo := repository.NewRequestRepository(index)
	workerRepo := repository.NewWorkerRepository(index)
	sessionRepo := repository.NewSessionRepository(index)
	messageRepo := repository.NewMessageRepository(index)

	clk := clock.NewReal()
	bus := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	observability.RegisterEventCounters(bus, metrics)
	logger := zap.NewNop()
	q := queue.New()
	reg := registry.New(workerRepo)
	detector := crisis.NewPhraseDetector([]string{"suicide", "end it all"})

	sessionService := service.NewSessionService(service.SessionDependencies{
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
	})
	engine.RegisterHandlers(context.Background())
	supportService := service.NewSupportService(service.SupportDependencies{
		Queue:       q,
		RequestRepo: requestRepo,
		Engine:      engine,
		Detector:    detector,
		Dispatcher:  bus,
		Clock:       clk,
		Logger:      logger,
	})
	workerService := service.NewWorkerService(service.WorkerDependencies{
		Registry:   reg,
		Dispatcher: bus,
		Clock:      clk,
		Logger:     logger,
	})
	hub := stream.NewHub()
	hub.RegisterHandlers(bus)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("support-test", "test", "memory", nil, nil),
		Metrics:  handlers.NewMetricsHandler(metrics),
		Requests: handlers.NewRequestsHandler(supportService),
		Sessions: handlers.NewSessionsHandler(sessionService),
		Workers:  handlers.NewWorkersHandler(workerService),
		Stream:   handlers.NewStreamHandler(hub, sessionService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s %s body %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	payload, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("response without data object: %v", body)
	}
	return payload
}

func TestSubmitMatchEndOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/workers", map[string]any{
		"name":        "Asha",
		"specialties": []string{"anxiety"},
		"languages":   []string{"en"},
	})
	if status != http.StatusCreated {
		t.Fatalf("register worker = %d: %v", status, body)
	}
	workerID := data(t, body)["id"].(string)

	status, body = doJSON(t, app, http.MethodPut, "/workers/"+workerID+"/status", map[string]any{
		"status": "AVAILABLE",
	})
	if status != http.StatusOK {
		t.Fatalf("set status = %d: %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodPost, "/requests", map[string]any{
		"requester_id":    "u1",
		"initial_message": "I need someone to talk to",
		"concerns":        []string{"anxiety"},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit = %d: %v", status, body)
	}
	submitted := data(t, body)
	if submitted["status"] != "matched" {
		t.Fatalf("submit status = %v", submitted["status"])
	}
	sessionID := submitted["session_id"].(string)

	status, body = doJSON(t, app, http.MethodPost, "/sessions/"+sessionID+"/messages", map[string]any{
		"sender": "WORKER",
		"body":   "hello, how are you feeling today?",
	})
	if status != http.StatusCreated {
		t.Fatalf("post message = %d: %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodGet, "/sessions/"+sessionID, nil)
	if status != http.StatusOK {
		t.Fatalf("get session = %d", status)
	}
	detail := data(t, body)
	transcript := detail["transcript"].([]any)
	if len(transcript) != 3 {
		t.Fatalf("transcript length = %d, want notice, initial message and reply", len(transcript))
	}

	status, _ = doJSON(t, app, http.MethodPost, "/sessions/"+sessionID+"/end", map[string]any{
		"ended_by": "REQUESTER",
	})
	if status != http.StatusOK {
		t.Fatalf("end = %d", status)
	}
	// idempotent
	status, _ = doJSON(t, app, http.MethodPost, "/sessions/"+sessionID+"/end", nil)
	if status != http.StatusOK {
		t.Fatalf("second end = %d", status)
	}

	status, body = doJSON(t, app, http.MethodGet, "/workers/"+workerID, nil)
	if status != http.StatusOK {
		t.Fatalf("get worker = %d", status)
	}
	if data(t, body)["status"] != "AVAILABLE" {
		t.Fatalf("worker after end = %v", data(t, body)["status"])
	}
}

func TestQueueFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/requests", map[string]any{
		"requester_id":    "u1",
		"initial_message": "is anyone there",
		"urgency":         "LOW",
	})
	if status != http.StatusCreated {
		t.Fatalf("submit = %d: %v", status, body)
	}
	submitted := data(t, body)
	if submitted["status"] != "queued" {
		t.Fatalf("status = %v, want queued with no workers", submitted["status"])
	}
	requestID := submitted["request_id"].(string)
	if submitted["queue_position"].(float64) != 1 {
		t.Fatalf("position = %v", submitted["queue_position"])
	}

	status, body = doJSON(t, app, http.MethodGet, "/queue", nil)
	if status != http.StatusOK {
		t.Fatalf("queue = %d", status)
	}
	if entries := body["data"].([]any); len(entries) != 1 {
		t.Fatalf("queue entries = %d", len(entries))
	}

	status, body = doJSON(t, app, http.MethodPost, "/requests/"+requestID+"/messages", map[string]any{
		"body": "I think I might end it all",
	})
	if status != http.StatusCreated {
		t.Fatalf("queued message = %d: %v", status, body)
	}
	if data(t, body)["urgency"] != "URGENT" {
		t.Fatalf("urgency after crisis text = %v", data(t, body)["urgency"])
	}

	status, _ = doJSON(t, app, http.MethodDelete, "/requests/"+requestID, nil)
	if status != http.StatusOK {
		t.Fatalf("cancel = %d", status)
	}
	status, body = doJSON(t, app, http.MethodGet, "/requests/"+requestID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status after cancel = %d: %v", status, body)
	}
}

func TestErrorEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/requests/ghost", nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing request = %d", status)
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope: %v", body)
	}
	if errObj["code"] != "NOT_FOUND" {
		t.Fatalf("code = %v", errObj["code"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/requests", map[string]any{
		"requester_id": "u1",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid submit = %d: %v", status, body)
	}
	if body["error"].(map[string]any)["code"] != "VALIDATION_FAILED" {
		t.Fatalf("code = %v", body["error"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/sessions/ghost/messages", map[string]any{
		"sender": "REQUESTER",
		"body":   "hello",
	})
	if status != http.StatusNotFound {
		t.Fatalf("message to missing session = %d: %v", status, body)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodGet, "/health/live", nil)
	if status != http.StatusOK {
		t.Fatalf("live = %d", status)
	}
	status, _ = doJSON(t, app, http.MethodGet, "/health/ready", nil)
	if status != http.StatusOK {
		t.Fatalf("ready = %d", status)
	}

	// a couple of requests first so the counters are non-empty
	doJSON(t, app, http.MethodPost, "/requests", map[string]any{
		"requester_id": "u1", "initial_message": "hello",
	})
	status, body := doJSON(t, app, http.MethodGet, "/metrics", nil)
	if status != http.StatusOK {
		t.Fatalf("metrics = %d", status)
	}
	domainCounters, ok := body["domain"].(map[string]any)
	if !ok {
		t.Fatalf("metrics body = %v", body)
	}
	if domainCounters["requests_submitted"].(float64) < 1 {
		t.Fatalf("submission counter = %v", domainCounters["requests_submitted"])
	}
}

func TestSessionListValidation(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodGet, "/sessions", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("list without filter = %d: %v", status, body)
	}
}

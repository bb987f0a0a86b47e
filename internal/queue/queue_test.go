package queue

import (
	"testing"
	"time"

	"github.com/soulace/support-service/internal/domain"
)

func newRequest(id string, urgency domain.Urgency, submittedAt time.Time) *domain.Request {
	return &domain.Request{
		ID:          id,
		RequesterID: "requester-" + id,
		Urgency:     urgency,
		SubmittedAt: submittedAt,
	}
}

func TestPeekOrderedRankBeforeArrival(t *testing.T) {
	q := New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	q.Enqueue(newRequest("low-early", domain.UrgencyLow, base))
	q.Enqueue(newRequest("urgent-late", domain.UrgencyUrgent, base.Add(time.Hour)))
	q.Enqueue(newRequest("high-mid", domain.UrgencyHigh, base.Add(30*time.Minute)))

	ordered := q.PeekOrdered()
	want := []string{"urgent-late", "high-mid", "low-early"}
	for i, id := range want {
		if ordered[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].ID, id)
		}
	}
}

func TestPeekOrderedArrivalWithinRank(t *testing.T) {
	q := New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	q.Enqueue(newRequest("second", domain.UrgencyMedium, base.Add(time.Minute)))
	q.Enqueue(newRequest("first", domain.UrgencyMedium, base))
	q.Enqueue(newRequest("third", domain.UrgencyMedium, base.Add(2*time.Minute)))

	ordered := q.PeekOrdered()
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if ordered[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].ID, id)
		}
	}
}

func TestPeekOrderedIDBreaksExactTies(t *testing.T) {
	q := New()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	q.Enqueue(newRequest("b", domain.UrgencyHigh, at))
	q.Enqueue(newRequest("a", domain.UrgencyHigh, at))

	ordered := q.PeekOrdered()
	if ordered[0].ID != "a" || ordered[1].ID != "b" {
		t.Fatalf("tie-break order = %s, %s", ordered[0].ID, ordered[1].ID)
	}
}

func TestUpgradeUrgencyNeverLowers(t *testing.T) {
	q := New()
	at := time.Now()
	q.Enqueue(newRequest("r1", domain.UrgencyHigh, at))

	if q.UpgradeUrgency("r1", domain.UrgencyLow) {
		t.Fatal("downgrade reported as a change")
	}
	if got := q.Get("r1").Urgency; got != domain.UrgencyHigh {
		t.Fatalf("urgency after rejected downgrade = %s", got)
	}

	if q.UpgradeUrgency("r1", domain.UrgencyHigh) {
		t.Fatal("equal-rank upgrade reported as a change")
	}

	if !q.UpgradeUrgency("r1", domain.UrgencyUrgent) {
		t.Fatal("upgrade to URGENT not applied")
	}
	if got := q.Get("r1").Urgency; got != domain.UrgencyUrgent {
		t.Fatalf("urgency after upgrade = %s", got)
	}

	if q.UpgradeUrgency("r1", domain.UrgencyUrgent) {
		t.Fatal("repeated upgrade reported as a change")
	}
}

func TestUpgradeUrgencyReorders(t *testing.T) {
	q := New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	q.Enqueue(newRequest("older-high", domain.UrgencyHigh, base))
	q.Enqueue(newRequest("newer-low", domain.UrgencyLow, base.Add(time.Minute)))

	if got := q.Position("newer-low"); got != 2 {
		t.Fatalf("position before upgrade = %d", got)
	}
	q.UpgradeUrgency("newer-low", domain.UrgencyUrgent)
	if got := q.Position("newer-low"); got != 1 {
		t.Fatalf("position after upgrade = %d", got)
	}
}

func TestUpgradeUrgencyUnknownRequest(t *testing.T) {
	q := New()
	if q.UpgradeUrgency("ghost", domain.UrgencyUrgent) {
		t.Fatal("upgrade of unknown request reported as a change")
	}
}

func TestRemove(t *testing.T) {
	q := New()
	q.Enqueue(newRequest("r1", domain.UrgencyMedium, time.Now()))

	if got := q.Remove("ghost"); got != nil {
		t.Fatalf("Remove unknown = %v", got)
	}
	removed := q.Remove("r1")
	if removed == nil || removed.ID != "r1" {
		t.Fatalf("Remove = %v", removed)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after remove = %d", q.Len())
	}
	if q.Remove("r1") != nil {
		t.Fatal("second Remove returned the request again")
	}
}

func TestPositionZeroWhenNotQueued(t *testing.T) {
	q := New()
	if got := q.Position("ghost"); got != 0 {
		t.Fatalf("Position = %d, want 0", got)
	}
}

func TestAppendPending(t *testing.T) {
	q := New()
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	q.Enqueue(newRequest("r1", domain.UrgencyMedium, at))

	updated, ok := q.AppendPending("r1", domain.PendingMessage{Body: "still here", SentAt: at.Add(time.Minute)})
	if !ok {
		t.Fatal("AppendPending reported not queued")
	}
	if len(updated.PendingMessages) != 1 || updated.PendingMessages[0].Body != "still here" {
		t.Fatalf("PendingMessages = %v", updated.PendingMessages)
	}
	if got := q.Get("r1"); len(got.PendingMessages) != 1 {
		t.Fatalf("append not visible on Get: %v", got.PendingMessages)
	}

	if _, ok := q.AppendPending("ghost", domain.PendingMessage{Body: "x"}); ok {
		t.Fatal("AppendPending accepted an unknown id")
	}
}

func TestCallersNeverShareQueueState(t *testing.T) {
	q := New()
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	submitted := newRequest("r1", domain.UrgencyMedium, at)
	q.Enqueue(submitted)

	// mutating the caller's value after enqueue changes nothing inside
	submitted.Urgency = domain.UrgencyUrgent
	if got := q.Get("r1").Urgency; got != domain.UrgencyMedium {
		t.Fatalf("queue observed caller mutation: %s", got)
	}

	// mutating a returned copy changes nothing inside either
	peeked := q.Get("r1")
	peeked.Urgency = domain.UrgencyLow
	peeked.PendingMessages = append(peeked.PendingMessages, domain.PendingMessage{Body: "x"})
	if got := q.Get("r1"); got.Urgency != domain.UrgencyMedium || len(got.PendingMessages) != 0 {
		t.Fatalf("queue observed copy mutation: %+v", got)
	}

	ordered := q.PeekOrdered()
	ordered[0].Urgency = domain.UrgencyLow
	if got := q.Get("r1").Urgency; got != domain.UrgencyMedium {
		t.Fatalf("queue observed peek mutation: %s", got)
	}
}

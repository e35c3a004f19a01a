package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
)

func generated(owner uuid.UUID, n int) []area.SearchArea {
	out := make([]area.SearchArea, n)
	for i := range out {
		r, _ := area.NextRadius(i)
		out[i] = area.SearchArea{ID: uuid.New(), OwnerID: owner, RadiusKm: r, WeekID: 202642, GenerationIndex: i}
	}
	return out
}

func TestReplicaDuplicateEventsAreIdempotent(t *testing.T) {
	owner := uuid.New()
	areas := generated(owner, 5)
	replica := NewReplica()

	// every event delivered three times, newest first
	for round := 0; round < 3; round++ {
		for i := len(areas) - 1; i >= 0; i-- {
			frame, err := encode(EventAreaCreated, areas[i])
			if err != nil {
				t.Fatal(err)
			}
			if err := replica.Apply(frame); err != nil {
				t.Fatal(err)
			}
		}
	}

	got := replica.Areas()
	if len(got) != len(areas) {
		t.Fatalf("expected %d areas, got %d", len(areas), len(got))
	}
	for i := range got {
		if got[i].ID != areas[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, areas[i].ID, got[i].ID)
		}
		if i > 0 && got[i].RadiusKm > got[i-1].RadiusKm {
			t.Fatalf("radius grew at %d", i)
		}
	}
}

func TestReplicaSnapshotReplacesBufferedState(t *testing.T) {
	owner := uuid.New()
	replica := NewReplica()
	replica.Upsert(area.SearchArea{ID: uuid.New(), OwnerID: owner})

	authoritative := generated(owner, 2)
	frame, err := encode(EventAreasSnapshot, Snapshot{Items: authoritative})
	if err != nil {
		t.Fatal(err)
	}
	if err := replica.Apply(frame); err != nil {
		t.Fatal(err)
	}

	if replica.Len() != 2 {
		t.Fatalf("expected snapshot to replace state, got %d areas", replica.Len())
	}
}

func TestReplicaIgnoresUnknownEvents(t *testing.T) {
	replica := NewReplica()
	if err := replica.Apply([]byte(`{"type":"notification:new","data":{"title":"x"}}`)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := replica.Apply([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
	if replica.Len() != 0 {
		t.Fatal("expected empty replica")
	}
}

func TestPollerRefreshesAndStopsOnCancel(t *testing.T) {
	owner := uuid.New()
	authoritative := generated(owner, 3)
	replica := NewReplica()
	replica.Upsert(area.SearchArea{ID: uuid.New(), OwnerID: owner})

	var calls atomic.Int32
	poller := NewPoller(replica, func(ctx context.Context) ([]area.SearchArea, error) {
		calls.Add(1)
		return authoritative, nil
	}, 10*time.Millisecond)

	if poller.Interval() != minPollInterval {
		t.Fatalf("expected interval clamped to %v, got %v", minPollInterval, poller.Interval())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	waitFor(t, "two polls", func() bool { return calls.Load() >= 2 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	if replica.Len() != 3 {
		t.Fatalf("expected replica replaced by poll, got %d areas", replica.Len())
	}

	after := calls.Load()
	time.Sleep(3 * minPollInterval)
	if calls.Load() != after {
		t.Fatal("poller kept running after cancel")
	}
}

func TestPollerKeepsAreasPushedDuringFetch(t *testing.T) {
	owner := uuid.New()
	authoritative := generated(owner, 2)
	pushed := area.SearchArea{ID: uuid.New(), OwnerID: owner, RadiusKm: 90.25, WeekID: 202642, GenerationIndex: 2}
	stale := area.SearchArea{ID: uuid.New(), OwnerID: owner}

	replica := NewReplica()
	replica.Upsert(stale)

	refreshed := 0
	poller := NewPoller(replica, func(ctx context.Context) ([]area.SearchArea, error) {
		// the push lands while the list request is in flight
		replica.Upsert(pushed)
		return authoritative, nil
	}, time.Second)
	poller.OnRefresh = func(*Replica) { refreshed++ }

	if !poller.Refresh(context.Background()) {
		t.Fatal("expected refresh to succeed")
	}
	if refreshed != 1 {
		t.Fatalf("expected OnRefresh once, got %d", refreshed)
	}

	got := replica.Areas()
	if len(got) != 3 || got[2].ID != pushed.ID {
		t.Fatalf("expected the two listed areas plus the pushed one, got %+v", got)
	}
	for _, a := range got {
		if a.ID == stale.ID {
			t.Fatal("area pushed before the fetch should be replaced")
		}
	}

	// a poll started after the push is authoritative again
	poller.fetch = func(ctx context.Context) ([]area.SearchArea, error) {
		return authoritative, nil
	}
	poller.Refresh(context.Background())
	if replica.Len() != 2 {
		t.Fatalf("expected a later poll to be authoritative, got %d areas", replica.Len())
	}
}

func TestPollerKeepsStateOnFailure(t *testing.T) {
	replica := NewReplica()
	replica.Upsert(area.SearchArea{ID: uuid.New()})

	poller := NewPoller(replica, func(ctx context.Context) ([]area.SearchArea, error) {
		return nil, errors.New("connection refused")
	}, time.Second)

	if poller.Refresh(context.Background()) {
		t.Fatal("expected refresh to fail")
	}
	if replica.Len() != 1 {
		t.Fatal("expected buffered state kept")
	}
}

func TestHTTPFetcher(t *testing.T) {
	owner := uuid.New()
	areas := generated(owner, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/areas" || r.Header.Get("Authorization") != "Bearer tok" {
			response.Unauthorized(w, "unauthorized")
			return
		}
		response.OK(w, map[string]interface{}{"items": areas})
	}))
	defer srv.Close()

	got, err := HTTPFetcher(srv.Client(), srv.URL, "tok")(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].ID != areas[1].ID {
		t.Fatalf("unexpected areas %+v", got)
	}

	if _, err := HTTPFetcher(srv.Client(), srv.URL, "wrong")(context.Background()); err == nil {
		t.Fatal("expected error for unauthorized fetch")
	}
}

package area

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

var testPolicy = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type capturePublisher struct {
	mu     sync.Mutex
	events []SearchArea
	done   chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{done: make(chan struct{}, 16)}
}

func (p *capturePublisher) PublishAreaCreated(_ context.Context, _ uuid.UUID, a *SearchArea) error {
	p.mu.Lock()
	p.events = append(p.events, *a)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

// racingRepo simulates another instance storing generation 0 between our
// count and our insert.
type racingRepo struct {
	Repository
	once sync.Once
}

func (r *racingRepo) CountByWeek(ctx context.Context, ownerID uuid.UUID, weekID int) (int, error) {
	raced := false
	r.once.Do(func() {
		raced = true
		other := &SearchArea{
			ID: uuid.New(), OwnerID: ownerID, RadiusKm: 100, WeekID: weekID,
			GenerationIndex: 0, CreatedAt: time.Now().UTC(),
		}
		if err := r.Repository.Insert(ctx, other); err != nil {
			panic(err)
		}
	})
	if raced {
		return 0, nil
	}
	return r.Repository.CountByWeek(ctx, ownerID, weekID)
}

type failingRepo struct {
	Repository
}

func (failingRepo) Insert(context.Context, *SearchArea) error {
	return ErrInternal
}

// lostAckRepo stores the first area and then reports a failure, like a
// timeout that fires after the commit.
type lostAckRepo struct {
	Repository
	once sync.Once
}

func (r *lostAckRepo) Insert(ctx context.Context, a *SearchArea) error {
	var err error
	acked := true
	r.once.Do(func() {
		acked = false
		err = r.Repository.Insert(ctx, a)
	})
	if acked {
		return r.Repository.Insert(ctx, a)
	}
	if err != nil {
		return err
	}
	return ErrInternal
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	testPrize = Point{Lat: 45.8081, Lng: 9.0852}
	weekTime  = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
)

func TestGenerateAreaSequence(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewRepository(db), nil, nil, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})
	owner := uuid.New()

	const n = 15
	for i := 0; i < n; i++ {
		a, err := svc.GenerateArea(context.Background(), owner)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if a.GenerationIndex != i {
			t.Fatalf("expected generation %d, got %d", i, a.GenerationIndex)
		}
		if a.WeekID != 202642 {
			t.Fatalf("expected week 202642, got %d", a.WeekID)
		}
	}

	areas, err := svc.ListAreas(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != n {
		t.Fatalf("expected %d areas, got %d", n, len(areas))
	}
	if areas[0].RadiusKm != 100 {
		t.Fatalf("expected first radius 100, got %v", areas[0].RadiusKm)
	}

	seen := make(map[uuid.UUID]bool)
	for i, a := range areas {
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
		if i > 0 && a.RadiusKm > areas[i-1].RadiusKm {
			t.Fatalf("radius grew at %d: %v > %v", i, a.RadiusKm, areas[i-1].RadiusKm)
		}
		want, _ := NextRadius(i)
		if a.RadiusKm != want {
			t.Fatalf("generation %d: radius %v, want %v", i, a.RadiusKm, want)
		}
	}
}

func TestGenerateAreaNewWeekStartsOver(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	owner := uuid.New()

	thisWeek := NewService(repo, nil, nil, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})
	for i := 0; i < 3; i++ {
		if _, err := thisWeek.GenerateArea(context.Background(), owner); err != nil {
			t.Fatal(err)
		}
	}

	nextWeek := NewService(repo, nil, nil, fixedClock{weekTime.AddDate(0, 0, 7)}, Config{Prize: testPrize, Retry: testPolicy})
	a, err := nextWeek.GenerateArea(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if a.GenerationIndex != 0 || a.RadiusKm != 100 {
		t.Fatalf("expected a fresh week, got generation %d radius %v", a.GenerationIndex, a.RadiusKm)
	}
}

func TestGenerateAreaConcurrentSameOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewRepository(db), nil, nil, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})
	owner := uuid.New()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GenerateArea(context.Background(), owner); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	areas, err := svc.ListAreas(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != n {
		t.Fatalf("expected %d areas, got %d", n, len(areas))
	}
	for i, a := range areas {
		if a.GenerationIndex != i {
			t.Fatalf("expected contiguous generations, got %d at %d", a.GenerationIndex, i)
		}
	}
}

func TestGenerateAreaRecountsOnConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := &racingRepo{Repository: NewRepository(db)}
	svc := NewService(repo, nil, nil, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})

	a, err := svc.GenerateArea(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if a.GenerationIndex != 1 || a.RadiusKm != 95 {
		t.Fatalf("expected generation 1 at 95 km, got %d at %v", a.GenerationIndex, a.RadiusKm)
	}
}

func TestGenerateAreaChargesBuzzCost(t *testing.T) {
	db := setupTestDB(t)
	credits := credit.NewService(db, testPolicy)
	owner := uuid.New()
	if err := credits.Grant(context.Background(), owner, 25, credit.TransactionMeta{Description: "seed"}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(NewRepository(db), credits, nil, fixedClock{weekTime}, Config{Prize: testPrize, BuzzCost: 10, Retry: testPolicy})
	for i := 0; i < 2; i++ {
		if _, err := svc.GenerateArea(context.Background(), owner); err != nil {
			t.Fatal(err)
		}
	}

	_, err := svc.GenerateArea(context.Background(), owner)
	if !errors.Is(err, credit.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	balance, err := credits.GetBalance(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 5 {
		t.Fatalf("expected balance 5, got %d", balance)
	}

	areas, _ := svc.ListAreas(context.Background(), owner)
	if len(areas) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(areas))
	}
}

func TestGenerateAreaRefundsOnStorageFailure(t *testing.T) {
	db := setupTestDB(t)
	credits := credit.NewService(db, testPolicy)
	owner := uuid.New()
	if err := credits.Grant(context.Background(), owner, 10, credit.TransactionMeta{Description: "seed"}); err != nil {
		t.Fatal(err)
	}

	repo := failingRepo{Repository: NewRepository(db)}
	svc := NewService(repo, credits, nil, fixedClock{weekTime}, Config{Prize: testPrize, BuzzCost: 10, Retry: testPolicy})

	_, err := svc.GenerateArea(context.Background(), owner)
	if !errors.Is(err, ErrStorageWriteFailure) {
		t.Fatalf("expected ErrStorageWriteFailure, got %v", err)
	}

	balance, err := credits.GetBalance(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 10 {
		t.Fatalf("expected refunded balance 10, got %d", balance)
	}
}

func TestGenerateAreaKeepsCommittedInsert(t *testing.T) {
	db := setupTestDB(t)
	credits := credit.NewService(db, testPolicy)
	owner := uuid.New()
	if err := credits.Grant(context.Background(), owner, 20, credit.TransactionMeta{Description: "seed"}); err != nil {
		t.Fatal(err)
	}

	repo := &lostAckRepo{Repository: NewRepository(db)}
	svc := NewService(repo, credits, nil, fixedClock{weekTime}, Config{Prize: testPrize, BuzzCost: 10, Retry: testPolicy})

	a, err := svc.GenerateArea(context.Background(), owner)
	if err != nil {
		t.Fatalf("expected the stored area, got %v", err)
	}
	if a.GenerationIndex != 0 || a.RadiusKm != 100 {
		t.Fatalf("unexpected area %+v", a)
	}

	areas, _ := svc.ListAreas(context.Background(), owner)
	if len(areas) != 1 || areas[0].ID != a.ID {
		t.Fatalf("expected exactly the returned area stored, got %+v", areas)
	}

	balance, err := credits.GetBalance(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 10 {
		t.Fatalf("expected a single charge leaving 10, got %d", balance)
	}
}

func TestGenerateAreaPublishesAfterCommit(t *testing.T) {
	db := setupTestDB(t)
	pub := newCapturePublisher()
	svc := NewService(NewRepository(db), nil, pub, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})

	a, err := svc.GenerateArea(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-pub.done:
	case <-time.After(time.Second):
		t.Fatal("area event was not published")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 || pub.events[0].ID != a.ID {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestCurrentWeekConsistency(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewRepository(db), nil, nil, fixedClock{weekTime}, Config{Prize: testPrize, Retry: testPolicy})
	owner := uuid.New()

	c, err := svc.CurrentWeekConsistency(context.Background(), owner)
	if err != nil || c != nil {
		t.Fatalf("expected no report without areas, got %+v, %v", c, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.GenerateArea(context.Background(), owner); err != nil {
			t.Fatal(err)
		}
	}
	c, err = svc.CurrentWeekConsistency(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if c.Generation != 2 || !c.Consistent() {
		t.Fatalf("unexpected report %+v", c)
	}
}

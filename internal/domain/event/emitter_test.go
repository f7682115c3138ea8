package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestEmit_AssignsIDAndTimestamp(t *testing.T) {
	original := nowMillis
	nowMillis = func() int64 { return 1717000000000 }
	defer func() { nowMillis = original }()

	repo := NewMemoryRepository()
	em := NewEmitter(repo)

	e, err := em.Emit(context.Background(), Draft{
		Type:    "Quote.Accepted",
		Subject: Subject{Kind: SubjectQuote, ID: "q-1"},
		Meta:    Meta{"total": 1200},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if e.Timestamp != 1717000000000 {
		t.Errorf("timestamp = %d, want injected now", e.Timestamp)
	}

	stored, err := repo.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("event not stored: %v", err)
	}
	if stored.Type != "Quote.Accepted" {
		t.Errorf("stored type = %q", stored.Type)
	}
}

func TestEmit_KeepsExplicitTimestamp(t *testing.T) {
	repo := NewMemoryRepository()
	em := NewEmitter(repo)

	e, err := em.Emit(context.Background(), Draft{
		Type:      "Episode.StateChanged",
		Subject:   Subject{Kind: SubjectEpisode, ID: "ep-1"},
		Timestamp: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Timestamp != 42 {
		t.Errorf("timestamp = %d, want 42", e.Timestamp)
	}
}

func TestEmit_Validation(t *testing.T) {
	em := NewEmitter(NewMemoryRepository())

	if _, err := em.Emit(context.Background(), Draft{Subject: Subject{Kind: SubjectEpisode, ID: "x"}}); err == nil {
		t.Error("expected error for missing type")
	}
	if _, err := em.Emit(context.Background(), Draft{Type: "A.B", Subject: Subject{Kind: "invoice", ID: "x"}}); err == nil {
		t.Error("expected error for invalid subject kind")
	}
	if _, err := em.Emit(context.Background(), Draft{Type: "A.B", Subject: Subject{Kind: SubjectEpisode}}); err == nil {
		t.Error("expected error for missing subject id")
	}
}

func TestEmit_ConcurrentNoCollision(t *testing.T) {
	repo := NewMemoryRepository()
	em := NewEmitter(repo)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := em.Emit(context.Background(), Draft{
				Type:    "FollowUp.Scheduled",
				Subject: Subject{Kind: SubjectPatient, ID: "p-1"},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent emit failed: %v", err)
		}
	}

	events, err := repo.ListAfter(context.Background(), 0, n+1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != n {
		t.Errorf("stored %d events, want %d", len(events), n)
	}
}

func TestMemoryRepository_ListAfter_Cursor(t *testing.T) {
	repo := NewMemoryRepository()
	em := NewEmitter(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := em.Emit(ctx, Draft{Type: "Lead.Qualified", Subject: Subject{Kind: SubjectEpisode, ID: "ep"}}); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	first, err := repo.ListAfter(ctx, 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first page = %d events, want 3", len(first))
	}

	rest, err := repo.ListAfter(ctx, first[len(first)-1].Seq, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("second page = %d events, want 2", len(rest))
	}
	for _, e := range rest {
		if e.Seq <= first[len(first)-1].Seq {
			t.Errorf("cursor violated: seq %d", e.Seq)
		}
	}
}

package task

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, zerolog.New(os.Stderr)), repo
}

func TestCreateTask(t *testing.T) {
	svc, _ := newTestService()

	tk, err := svc.CreateTask(context.Background(), "Llamar al paciente", PriorityHigh, "patient", "p-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.ID == "" {
		t.Error("expected generated id")
	}
	if tk.Status != StatusOpen {
		t.Errorf("status = %s, want open", tk.Status)
	}
	if tk.Source != "manual" {
		t.Errorf("source = %s, want manual", tk.Source)
	}
}

func TestCreateTask_DefaultsPriority(t *testing.T) {
	svc, _ := newTestService()

	tk, err := svc.CreateTask(context.Background(), "Revisar historial", "", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Priority != PriorityMedium {
		t.Errorf("priority = %s, want medium", tk.Priority)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateTask(ctx, "", PriorityLow, "", "", nil); err == nil {
		t.Error("expected error for empty summary")
	}
	if _, err := svc.CreateTask(ctx, "x", Priority("urgent"), "", "", nil); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestPut_OverwritesSameID(t *testing.T) {
	_, repo := newTestService()
	ctx := context.Background()

	due := time.Now().Add(24 * time.Hour)
	first := &Task{ID: "inventory-ev1", Summary: "Reponer SKU A (2 uds)", Priority: PriorityHigh, Status: StatusOpen}
	if err := repo.Put(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Task{ID: "inventory-ev1", Summary: "Reponer SKU A (3 uds)", Priority: PriorityHigh, Status: StatusOpen, DueAt: &due}
	if err := repo.Put(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, "inventory-ev1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "Reponer SKU A (3 uds)" {
		t.Errorf("summary = %q, overwrite lost", got.Summary)
	}

	open, total, err := repo.ListOpen(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(open) != 1 {
		t.Errorf("expected a single task after overwrite, got %d", total)
	}
}

func TestSetStatus(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	tk, _ := svc.CreateTask(ctx, "Confirmar cita", PriorityMedium, "", "", nil)
	if err := svc.SetStatus(ctx, tk.ID, StatusDone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := repo.GetByID(ctx, tk.ID)
	if got.Status != StatusDone {
		t.Errorf("status = %s, want done", got.Status)
	}

	if err := svc.SetStatus(ctx, tk.ID, Status("archived")); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := svc.SetStatus(ctx, "missing", StatusDone); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestListOpen_ExcludesClosed(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.CreateTask(ctx, "a", PriorityLow, "", "", nil)
	svc.CreateTask(ctx, "b", PriorityLow, "", "", nil)
	svc.SetStatus(ctx, a.ID, StatusCancelled)

	open, total, err := svc.ListOpen(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(open) != 1 {
		t.Fatalf("open = %d, want 1", total)
	}
	if open[0].Summary != "b" {
		t.Errorf("wrong task listed: %q", open[0].Summary)
	}
}

func TestListBySubject(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.CreateTask(ctx, "a", PriorityLow, "episode", "e-1", nil)
	svc.CreateTask(ctx, "b", PriorityLow, "episode", "e-2", nil)
	svc.CreateTask(ctx, "c", PriorityLow, "episode", "e-1", nil)

	_, total, err := svc.ListBySubject(ctx, "episode", "e-1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

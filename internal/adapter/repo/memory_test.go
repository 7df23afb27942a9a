package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"thumbgen/internal/domain"
)

func TestMemoryHistoryKeepsNewestHundred(t *testing.T) {
	repo := NewMemoryHistoryRepository(domain.DefaultHistoryLimit)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		rec := &domain.HistoryRecord{
			ID:        fmt.Sprintf("rec-%03d", i),
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	page, err := repo.List(ctx, "u1", 1000, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if page.Total != 100 {
		t.Fatalf("Total = %d, want 100", page.Total)
	}
	if len(page.Records) != 100 {
		t.Fatalf("len(Records) = %d, want 100", len(page.Records))
	}
	if page.Records[0].ID != "rec-104" {
		t.Fatalf("newest = %s, want rec-104", page.Records[0].ID)
	}
	if page.Records[99].ID != "rec-005" {
		t.Fatalf("oldest kept = %s, want rec-005", page.Records[99].ID)
	}
}

func TestMemoryHistoryPaginationDeleteClear(t *testing.T) {
	repo := NewMemoryHistoryRepository(0)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		_ = repo.Append(ctx, &domain.HistoryRecord{ID: fmt.Sprint(i), UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	_ = repo.Append(ctx, &domain.HistoryRecord{ID: "other", UserID: "u2"})

	page, err := repo.List(ctx, "u1", 2, 1)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if page.Total != 5 || len(page.Records) != 2 || page.Records[0].ID != "3" || page.Records[1].ID != "2" {
		t.Fatalf("unexpected page: %+v", page)
	}

	page, _ = repo.List(ctx, "u1", 2, 10)
	if len(page.Records) != 0 {
		t.Fatalf("offset past end returned %d records", len(page.Records))
	}

	if err := repo.Delete(ctx, "u1", "3"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := repo.Delete(ctx, "u1", "3"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "u1", "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-user Delete() error = %v, want ErrNotFound", err)
	}

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	page, _ = repo.List(ctx, "u1", 10, 0)
	if page.Total != 0 {
		t.Fatalf("Total after Clear = %d", page.Total)
	}
	page, _ = repo.List(ctx, "u2", 10, 0)
	if page.Total != 1 {
		t.Fatalf("other user Total = %d, want 1", page.Total)
	}
}

func TestMemoryUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u, err := repo.Create(ctx, &domain.User{Email: " Ana@Example.com ", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if u.ID == "" || u.Email != "ana@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := repo.Create(ctx, &domain.User{Email: "ANA@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("duplicate Create() error = %v, want ErrEmailTaken", err)
	}
	got, err := repo.GetByEmail(ctx, "ana@EXAMPLE.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail() = %+v, %v", got, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(missing) error = %v", err)
	}
}

package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
)

func TestUpsertProgress_InsertThenOverwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	advance := fixedClock(db, start)

	u := createTestUser(t, db, "progress@example.com")
	l := createTestLesson(t, db, "Loops", 1)

	first := &model.Progress{UserID: u.ID, LessonID: l.ID, CompletionPercentage: 30, TimeSpent: 10}
	if err := db.UpsertProgress(ctx, first); err != nil {
		t.Fatalf("UpsertProgress() insert error = %v", err)
	}
	if first.ID == 0 || !first.CreatedAt.Equal(start) || !first.LastAccessed.Equal(start) {
		t.Fatalf("insert result = %+v", first)
	}

	advance(time.Hour)

	second := &model.Progress{UserID: u.ID, LessonID: l.ID, Completed: true, CompletionPercentage: 100, TimeSpent: 3}
	if err := db.UpsertProgress(ctx, second); err != nil {
		t.Fatalf("UpsertProgress() update error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed on overwrite: %d → %d", first.ID, second.ID)
	}
	if !second.Completed || second.CompletionPercentage != 100 || second.TimeSpent != 3 {
		t.Errorf("fields not overwritten: %+v", second)
	}
	if !second.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt = %v, want original %v", second.CreatedAt, start)
	}
	if !second.LastAccessed.Equal(start.Add(time.Hour)) {
		t.Errorf("LastAccessed = %v, want refreshed %v", second.LastAccessed, start.Add(time.Hour))
	}

	rows, err := db.ListProgressByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("len(rows) = %d, want 1", len(rows))
	}
}

func TestUpsertProgress_ConcurrentSavesKeepOneRow(t *testing.T) {
	db := newFileTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "racer@example.com")
	l := createTestLesson(t, db, "Race", 1)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p := &model.Progress{UserID: u.ID, LessonID: l.ID, CompletionPercentage: float64(i * 10), TimeSpent: i}
			if err := db.UpsertProgress(ctx, p); err != nil {
				t.Errorf("UpsertProgress() error = %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	rows, err := db.ListProgressByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("len(rows) = %d, want exactly 1", len(rows))
	}
}

func TestUpsertProgress_MissingLesson(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "lost@example.com")

	err := db.UpsertProgress(context.Background(), &model.Progress{UserID: u.ID, LessonID: 31337})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpsertProgress() error = %v, want ErrNotFound", err)
	}
}

func TestGetProgress(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "single@example.com")
	l := createTestLesson(t, db, "One", 1)

	if _, err := db.GetProgress(ctx, u.ID, l.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetProgress() before save error = %v, want ErrNotFound", err)
	}

	if err := db.UpsertProgress(ctx, &model.Progress{UserID: u.ID, LessonID: l.ID, TimeSpent: 7}); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	got, err := db.GetProgress(ctx, u.ID, l.ID)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if got.TimeSpent != 7 {
		t.Errorf("TimeSpent = %d, want 7", got.TimeSpent)
	}
}

func TestListProgressByUser_OrderedByLesson(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "many@example.com")
	other := createTestUser(t, db, "other@example.com")
	l1 := createTestLesson(t, db, "A", 1)
	l2 := createTestLesson(t, db, "B", 2)

	for _, p := range []*model.Progress{
		{UserID: u.ID, LessonID: l2.ID},
		{UserID: u.ID, LessonID: l1.ID},
		{UserID: other.ID, LessonID: l1.ID},
	} {
		if err := db.UpsertProgress(ctx, p); err != nil {
			t.Fatalf("UpsertProgress() error = %v", err)
		}
	}

	rows, err := db.ListProgressByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser() error = %v", err)
	}
	if len(rows) != 2 || rows[0].LessonID != l1.ID || rows[1].LessonID != l2.ID {
		t.Errorf("ListProgressByUser() = %+v", rows)
	}
}

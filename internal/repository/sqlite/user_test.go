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

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "ada@example.com",
		PasswordHash: "$2a$04$hash",
		Name:         "Ada",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "dup@example.com", PasswordHash: "x"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_EmailIsCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "case@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "Case@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser() with different case error = %v, want nil", err)
	}
}

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	db := newFileTestDB(t)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := db.CreateUser(context.Background(), &model.User{Email: "race@example.com", PasswordHash: "x"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				t.Errorf("CreateUser() unexpected error = %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if created != 1 || conflicts != n-1 {
		t.Errorf("created=%d conflicts=%d, want 1 and %d", created, conflicts, n-1)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "lookup@example.com")

	found, err := db.GetUserByEmail(context.Background(), "lookup@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}

	if _, err := db.GetUserByEmail(context.Background(), "missing@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListUsers_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	advance := fixedClock(db, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	createTestUser(t, db, "first@example.com")
	advance(time.Minute)
	createTestUser(t, db, "second@example.com")

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].Email != "second@example.com" {
		t.Errorf("users[0] = %q, want newest first", users[0].Email)
	}
}

// =========================================================================
// TOKEN TESTS
// =========================================================================

func TestSwapUserToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "token@example.com")
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	swapped, err := db.SwapUserToken(ctx, u.ID, "tok-1", now.Add(24*time.Hour), now)
	if err != nil || !swapped {
		t.Fatalf("SwapUserToken() on empty slot = %v, %v; want true, nil", swapped, err)
	}

	// A live token blocks the swap.
	swapped, err = db.SwapUserToken(ctx, u.ID, "tok-2", now.Add(25*time.Hour), now.Add(time.Hour))
	if err != nil || swapped {
		t.Fatalf("SwapUserToken() over live token = %v, %v; want false, nil", swapped, err)
	}

	// Once expired, the slot is free again.
	later := now.Add(24 * time.Hour)
	swapped, err = db.SwapUserToken(ctx, u.ID, "tok-3", later.Add(24*time.Hour), later)
	if err != nil || !swapped {
		t.Fatalf("SwapUserToken() over expired token = %v, %v; want true, nil", swapped, err)
	}

	got, err := db.GetUserByToken(ctx, "tok-3")
	if err != nil {
		t.Fatalf("GetUserByToken() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByToken() ID = %d, want %d", got.ID, u.ID)
	}
	if !got.TokenExpiresAt.Equal(later.Add(24 * time.Hour)) {
		t.Errorf("TokenExpiresAt = %v, want %v", got.TokenExpiresAt, later.Add(24*time.Hour))
	}

	if _, err := db.GetUserByToken(ctx, "tok-1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByToken(old) error = %v, want ErrNotFound", err)
	}
}

func TestClearUserToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "logout@example.com")
	now := time.Now().UTC()

	if _, err := db.SwapUserToken(ctx, u.ID, "tok", now.Add(time.Hour), now); err != nil {
		t.Fatalf("SwapUserToken() error = %v", err)
	}
	if err := db.ClearUserToken(ctx, u.ID); err != nil {
		t.Fatalf("ClearUserToken() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Token != "" || !got.TokenExpiresAt.IsZero() {
		t.Errorf("token not cleared: %q, %v", got.Token, got.TokenExpiresAt)
	}
}

func TestClearExpiredTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	expired := createTestUser(t, db, "expired@example.com")
	live := createTestUser(t, db, "live@example.com")
	createTestUser(t, db, "none@example.com")

	if _, err := db.SwapUserToken(ctx, expired.ID, "old", now.Add(-time.Minute), now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("SwapUserToken(expired) error = %v", err)
	}
	if _, err := db.SwapUserToken(ctx, live.ID, "new", now.Add(time.Hour), now); err != nil {
		t.Fatalf("SwapUserToken(live) error = %v", err)
	}

	n, err := db.ClearExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("ClearExpiredTokens() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ClearExpiredTokens() = %d, want 1", n)
	}

	if _, err := db.GetUserByToken(ctx, "old"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expired token still present: %v", err)
	}
	if _, err := db.GetUserByToken(ctx, "new"); err != nil {
		t.Errorf("live token was cleared: %v", err)
	}

	// Second run finds nothing.
	n, err = db.ClearExpiredTokens(ctx, now)
	if err != nil || n != 0 {
		t.Errorf("ClearExpiredTokens() second run = %d, %v; want 0, nil", n, err)
	}
}

// =========================================================================
// UPDATE / ADMIN TESTS
// =========================================================================

func TestUpdateUserProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "profile@example.com")
	createTestUser(t, db, "taken@example.com")

	updated, err := db.UpdateUserProfile(ctx, u.ID, "New Name", "renamed@example.com")
	if err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}
	if updated.Name != "New Name" || updated.Email != "renamed@example.com" {
		t.Errorf("UpdateUserProfile() = %+v", updated)
	}

	_, err = db.UpdateUserProfile(ctx, u.ID, "New Name", "taken@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("UpdateUserProfile(taken email) error = %v, want ErrConflict", err)
	}

	_, err = db.UpdateUserProfile(ctx, 999, "x", "x@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUserProfile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSetUserFlags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "flags@example.com")

	got, err := db.SetUserAdmin(ctx, u.ID, true)
	if err != nil || !got.IsAdmin {
		t.Fatalf("SetUserAdmin(true) = %+v, %v", got, err)
	}
	got, err = db.SetUserVerified(ctx, u.ID, true)
	if err != nil || !got.IsVerified || !got.IsAdmin {
		t.Fatalf("SetUserVerified(true) = %+v, %v", got, err)
	}
	got, err = db.SetUserAdmin(ctx, u.ID, false)
	if err != nil || got.IsAdmin {
		t.Fatalf("SetUserAdmin(false) = %+v, %v", got, err)
	}

	if _, err := db.SetUserAdmin(ctx, 12345, true); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetUserAdmin(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUser_CascadesToOwnedRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "gone@example.com")
	l := createTestLesson(t, db, "Intro", 1)

	if err := db.UpsertProgress(ctx, &model.Progress{UserID: u.ID, LessonID: l.ID, TimeSpent: 5}); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	rows, err := db.ListProgressByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("progress rows survived user deletion: %d", len(rows))
	}

	if err := db.DeleteUser(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteUser() twice error = %v, want ErrNotFound", err)
	}
}

package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/webqx-health/authkit"
)

func TestPutAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	rec, err := store.Put(authkit.UserRecord{
		Email:        "Doc@Example.com",
		PasswordHash: "hash",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.UserID == "" {
		t.Fatal("Put did not assign an ID")
	}

	byEmail, err := store.GetUserByEmail(ctx, "doc@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.UserID != rec.UserID {
		t.Errorf("email lookup returned %q, want %q", byEmail.UserID, rec.UserID)
	}

	byID, err := store.GetUserByID(ctx, rec.UserID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "Doc@Example.com" {
		t.Errorf("stored email = %q", byID.Email)
	}
}

func TestLookupMissingUser(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Errorf("email err = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Errorf("ID err = %v, want ErrUserNotFound", err)
	}
}

func TestPutReplaceChangesEmailIndex(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	rec, err := store.Put(authkit.UserRecord{Email: "old@example.com"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec.Email = "new@example.com"
	if _, err := store.Put(rec); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	if _, err := store.GetUserByEmail(ctx, "old@example.com"); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Error("old email still resolves after replace")
	}
	if _, err := store.GetUserByEmail(ctx, "new@example.com"); err != nil {
		t.Errorf("new email lookup: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	rec, err := store.Put(authkit.UserRecord{Email: "doc@example.com"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	store.Delete(rec.UserID)
	store.Delete("already-gone")

	if _, err := store.GetUserByID(ctx, rec.UserID); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Error("deleted user still resolves")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := OpenUserStore(path)
	if err != nil {
		t.Fatalf("OpenUserStore: %v", err)
	}

	rec, err := store.Put(authkit.UserRecord{
		Email:        "doc@example.com",
		PasswordHash: "hash",
		FullName:     "Dr. Example",
		UserType:     "provider",
		Role:         "physician",
		Permissions:  []string{"charts:read"},
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenUserStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetUserByID(ctx, rec.UserID)
	if err != nil {
		t.Fatalf("GetUserByID after reopen: %v", err)
	}
	if got.Email != rec.Email || got.Role != rec.Role || !got.Active {
		t.Errorf("reloaded record = %+v", got)
	}
	if len(got.Permissions) != 1 || got.Permissions[0] != "charts:read" {
		t.Errorf("permissions = %v", got.Permissions)
	}
}

func TestOpenMissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	store, err := OpenUserStore(path)
	if err != nil {
		t.Fatalf("OpenUserStore: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestFlushWithoutPathIsNoop(t *testing.T) {
	store := NewUserStore()
	if _, err := store.Put(authkit.UserRecord{Email: "a@b.c"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
}

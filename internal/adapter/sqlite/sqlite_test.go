package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"microblog/internal/domain"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "microblog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserCreateAndLookup(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash", "Alice", "A")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero id")
	}

	if _, err := db.Create(ctx, "alice", "other", "", "A"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := db.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || got.ID != u.ID || got.DisplayName != "Alice" {
		t.Errorf("GetByUsername = %+v", got)
	}

	if got, _ := db.GetByUsername(ctx, "Alice"); got != nil {
		t.Error("username lookup must be case-sensitive")
	}
	if got, _ := db.GetByID(ctx, u.ID); got == nil || got.Username != "alice" {
		t.Errorf("GetByID = %+v", got)
	}
}

func TestPostLifecycle(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u, _ := db.Create(ctx, "alice", "hash", "", "A")

	if _, err := db.CreatePost(ctx, 999, "hi", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	base := time.Now()
	p1, err := db.CreatePost(ctx, u.ID, "first", base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	p2, _ := db.CreatePost(ctx, u.ID, "second", base)
	if p2.ID <= p1.ID {
		t.Errorf("ids not strictly increasing: %d then %d", p1.ID, p2.ID)
	}

	posts, err := db.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != p2.ID {
		t.Errorf("expected newest first, got id %d", posts[0].ID)
	}
	if posts[0].Author != "alice" {
		t.Errorf("author = %q; want alice", posts[0].Author)
	}
}

func TestToggleLike(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u, _ := db.Create(ctx, "alice", "hash", "", "A")
	bob, _ := db.Create(ctx, "bob", "hash", "", "B")
	p, _ := db.CreatePost(ctx, u.ID, "hello", time.Now())

	if _, err := db.ToggleLike(ctx, 999, u.ID); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}

	likes, err := db.ToggleLike(ctx, p.ID, u.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if likes != 1 {
		t.Errorf("likes = %d; want 1", likes)
	}
	likes, _ = db.ToggleLike(ctx, p.ID, bob.ID)
	if likes != 2 {
		t.Errorf("likes = %d; want 2", likes)
	}

	// Toggle pair is an involution
	likes, _ = db.ToggleLike(ctx, p.ID, bob.ID)
	if likes != 1 {
		t.Errorf("likes after bob untoggles = %d; want 1", likes)
	}

	posts, _ := db.ListPosts(ctx)
	if posts[0].Likes != len(posts[0].LikedBy) {
		t.Errorf("likes (%d) != len(likedBy) (%d)", posts[0].Likes, len(posts[0].LikedBy))
	}
	if len(posts[0].LikedBy) != 1 || posts[0].LikedBy[0] != u.ID {
		t.Errorf("likedBy = %v; want [%d]", posts[0].LikedBy, u.ID)
	}
}

func TestConcurrentWriters(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u, _ := db.Create(ctx, "alice", "hash", "", "A")
	p, _ := db.CreatePost(ctx, u.ID, "target", time.Now())

	const workers = 8
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := db.CreatePost(ctx, u.ID, "racing", time.Now()); err != nil {
				t.Errorf("CreatePost: %v", err)
			}
			liker, err := db.Create(ctx, fmt.Sprintf("user%02d", n), "hash", "", "U")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			if _, err := db.ToggleLike(ctx, p.ID, liker.ID); err != nil {
				t.Errorf("ToggleLike: %v", err)
			}
		}(i)
	}
	wg.Wait()

	posts, err := db.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != workers+1 {
		t.Fatalf("expected %d posts, got %d (lost writes)", workers+1, len(posts))
	}
	seen := make(map[int64]bool, len(posts))
	for _, got := range posts {
		if seen[got.ID] {
			t.Errorf("duplicate post id %d", got.ID)
		}
		seen[got.ID] = true
		if got.ID == p.ID {
			if got.Likes != workers {
				t.Errorf("likes = %d; want %d (each liker counted exactly once)", got.Likes, workers)
			}
			if got.Likes != len(got.LikedBy) {
				t.Errorf("likes (%d) != len(likedBy) (%d)", got.Likes, len(got.LikedBy))
			}
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	u, _ := db.Create(ctx, "alice", "hash", "", "A")

	if err := repo.Create(ctx, u.ID, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s, err := repo.GetByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if s == nil || s.UserID != u.ID {
		t.Errorf("GetByToken = %+v", s)
	}

	_ = repo.Create(ctx, u.ID, "old", time.Now().Add(-time.Hour))
	if err := repo.DeleteExpired(ctx); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if s, _ := repo.GetByToken(ctx, "old"); s != nil {
		t.Error("expected expired session gone")
	}

	_ = repo.Delete(ctx, "tok")
	if s, _ := repo.GetByToken(ctx, "tok"); s != nil {
		t.Error("expected deleted session gone")
	}
}

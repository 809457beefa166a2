package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"microblog/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "microblog.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestOpenInitializesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microblog.json")
	if _, err := Open(path); err != nil {
		t.Fatalf("open: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"users", "posts", "last_post_id", "last_comment_id"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("initial document missing %q", key)
		}
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microblog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, "alice", "hash", "Alice", "A")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 1 {
		t.Errorf("first user id = %d; want 1", u.ID)
	}

	if _, err := s.Create(ctx, "alice", "other", "", "A"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	// Reopen to prove persistence
	s2, err := Open(s.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Errorf("GetByUsername = %+v; want persisted alice", got)
	}
	got, _ = s2.GetByID(ctx, u.ID)
	if got == nil || got.Username != "alice" {
		t.Errorf("GetByID = %+v; want alice", got)
	}
}

func TestPostIDsSurviveRestart(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, "alice", "hash", "", "A")

	p1, err := s.CreatePost(ctx, u.ID, "first", time.Now())
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	s2, _ := Open(s.Path())
	p2, err := s2.CreatePost(ctx, u.ID, "second", time.Now())
	if err != nil {
		t.Fatalf("CreatePost after reopen: %v", err)
	}
	if p2.ID <= p1.ID {
		t.Errorf("post ids not strictly increasing across handles: %d then %d", p1.ID, p2.ID)
	}
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	s := openStore(t)
	if _, err := s.CreatePost(context.Background(), 42, "hi", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListPostsOrdering(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, "alice", "hash", "", "A")

	base := time.Now()
	_, _ = s.CreatePost(ctx, u.ID, "old", base.Add(-time.Hour))
	_, _ = s.CreatePost(ctx, u.ID, "new", base)
	_, _ = s.CreatePost(ctx, u.ID, "tie", base)

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if posts[0].Content != "tie" || posts[1].Content != "new" || posts[2].Content != "old" {
		t.Errorf("unexpected order: %q, %q, %q", posts[0].Content, posts[1].Content, posts[2].Content)
	}
}

func TestToggleLikePersists(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, "alice", "hash", "", "A")
	p, _ := s.CreatePost(ctx, u.ID, "hello", time.Now())

	likes, err := s.ToggleLike(ctx, p.ID, u.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if likes != 1 {
		t.Errorf("likes = %d; want 1", likes)
	}

	// A second handle sees the like, and the toggle pair is an involution.
	s2, _ := Open(s.Path())
	posts, _ := s2.ListPosts(ctx)
	if posts[0].Likes != 1 || len(posts[0].LikedBy) != 1 {
		t.Errorf("like not persisted: %+v", posts[0])
	}
	likes, _ = s2.ToggleLike(ctx, p.ID, u.ID)
	if likes != 0 {
		t.Errorf("likes after second toggle = %d; want 0", likes)
	}

	if _, err := s.ToggleLike(ctx, 999, u.ID); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestConcurrentCreatesAssignUniqueIDs(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, "alice", "hash", "", "A")

	// A second handle on the same file shares the per-path lock.
	s2, err := Open(s.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stores := []*Store{s, s2}

	const writers = 8
	const perWriter = 4
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(st *Store) {
			defer wg.Done()
			for range perWriter {
				if _, err := st.CreatePost(ctx, u.ID, "racing", time.Now()); err != nil {
					t.Errorf("CreatePost: %v", err)
				}
			}
		}(stores[i%len(stores)])
	}
	wg.Wait()

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != writers*perWriter {
		t.Fatalf("expected %d posts, got %d (lost writes)", writers*perWriter, len(posts))
	}
	seen := make(map[int64]bool, len(posts))
	for _, p := range posts {
		if seen[p.ID] {
			t.Errorf("duplicate post id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestConcurrentToggleLike(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	author, _ := s.Create(ctx, "alice", "hash", "", "A")
	p, _ := s.CreatePost(ctx, author.ID, "hello", time.Now())

	const likers = 10
	ids := make([]int64, likers)
	for i := range likers {
		u, err := s.Create(ctx, fmt.Sprintf("user%02d", i), "hash", "", "U")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids[i] = u.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := s.ToggleLike(ctx, p.ID, userID); err != nil {
				t.Errorf("ToggleLike: %v", err)
			}
		}(id)
	}
	wg.Wait()

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if posts[0].Likes != likers {
		t.Errorf("likes = %d; want %d (each liker counted exactly once)", posts[0].Likes, likers)
	}
	if posts[0].Likes != len(posts[0].LikedBy) {
		t.Errorf("likes (%d) != len(likedBy) (%d)", posts[0].Likes, len(posts[0].LikedBy))
	}
}

func TestLikeCountRecomputedOnLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, "alice", "hash", "", "A")
	p, _ := s.CreatePost(ctx, u.ID, "hello", time.Now())
	_, _ = s.ToggleLike(ctx, p.ID, u.ID)

	// Corrupt the derived counter on disk; load must restore the invariant.
	raw, _ := os.ReadFile(s.Path())
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	doc.Posts[0].Likes = 42
	edited, _ := json.Marshal(doc)
	if err := os.WriteFile(s.Path(), edited, 0o644); err != nil {
		t.Fatal(err)
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if posts[0].Likes != 1 {
		t.Errorf("likes = %d; want 1 (len of liked_by)", posts[0].Likes)
	}
}

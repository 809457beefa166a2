package app_test

import (
	"context"
	"errors"
	"testing"

	"microblog/internal/adapter/memory"
	"microblog/internal/app"
	"microblog/internal/domain"
)

// Exercises the full register/login/post/like flow against the in-memory
// backend.
func TestEndToEndScenario(t *testing.T) {
	db := memory.New()
	auth := app.NewAuthService(db, db.NewSessionRepo())
	feed := app.NewFeedService(db)
	ctx := context.Background()

	alice, err := auth.Register(ctx, "alice", "pass1", "")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}

	if _, err := auth.Register(ctx, "alice", "pass2", ""); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("duplicate register: expected ErrUsernameTaken, got %v", err)
	}

	u, err := auth.Authenticate(ctx, "alice", "pass1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("authenticated username = %q; want alice", u.Username)
	}

	post, err := feed.CreatePost(ctx, alice.ID, "  hello  ")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.Content != "hello" {
		t.Errorf("content = %q; want %q", post.Content, "hello")
	}

	likes, err := feed.ToggleLike(ctx, post.ID, alice.ID)
	if err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if likes != 1 {
		t.Errorf("likes = %d; want 1", likes)
	}
	likes, _ = feed.ToggleLike(ctx, post.ID, alice.ID)
	if likes != 0 {
		t.Errorf("likes after second toggle = %d; want 0", likes)
	}

	// Ids stay strictly increasing across creations.
	prev := post.ID
	for range 3 {
		p, err := feed.CreatePost(ctx, alice.ID, "more")
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		if p.ID <= prev {
			t.Fatalf("post id %d not greater than %d", p.ID, prev)
		}
		prev = p.ID
	}
}

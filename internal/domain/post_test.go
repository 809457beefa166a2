package domain_test

import (
	"testing"

	"microblog/internal/domain"
)

func TestSplitByAuthor(t *testing.T) {
	posts := []domain.Post{
		{ID: 3, AuthorID: 1},
		{ID: 2, AuthorID: 2},
		{ID: 1, AuthorID: 1},
	}

	mine, others := domain.SplitByAuthor(posts, 1)
	if len(mine) != 2 || len(others) != 1 {
		t.Fatalf("got %d mine, %d others; want 2, 1", len(mine), len(others))
	}
	if mine[0].ID != 3 || mine[1].ID != 1 {
		t.Errorf("mine out of order: %v", mine)
	}
	if others[0].ID != 2 {
		t.Errorf("others = %v; want post 2", others)
	}

	mine, others = domain.SplitByAuthor(posts, 99)
	if len(mine) != 0 || len(others) != 3 {
		t.Errorf("unknown viewer: got %d mine, %d others; want 0, 3", len(mine), len(others))
	}
}

func TestLikedByUser(t *testing.T) {
	p := domain.Post{LikedBy: []int64{4, 7}}
	if !p.LikedByUser(7) {
		t.Error("expected user 7 to be in liked-by set")
	}
	if p.LikedByUser(5) {
		t.Error("did not expect user 5 in liked-by set")
	}
}

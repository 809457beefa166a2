package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"microblog/internal/domain"
)

// FeedService encapsulates posting and liking use cases.
type FeedService struct {
	posts domain.PostRepository
}

// NewFeedService creates a FeedService backed by the given repository.
func NewFeedService(posts domain.PostRepository) *FeedService {
	return &FeedService{posts: posts}
}

// CreatePost validates and stores a new post authored by authorID.
func (s *FeedService) CreatePost(ctx context.Context, authorID int64, content string) (*domain.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	return s.posts.CreatePost(ctx, authorID, content, time.Now())
}

// ListPosts returns every post, most recent first.
func (s *FeedService) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return s.posts.ListPosts(ctx)
}

// Feed returns the viewer's own posts and everyone else's, each most recent
// first.
func (s *FeedService) Feed(ctx context.Context, viewerID int64) (mine, others []domain.Post, err error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, nil, err
	}
	mine, others = domain.SplitByAuthor(posts, viewerID)
	return mine, others, nil
}

// ToggleLike flips userID's like on a post and returns the new like count.
// Calling it twice with the same user restores the original count.
func (s *FeedService) ToggleLike(ctx context.Context, postID, userID int64) (int, error) {
	return s.posts.ToggleLike(ctx, postID, userID)
}

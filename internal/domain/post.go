package domain

import (
	"context"
	"time"
)

// Post represents a single published post.
//
// Author and AvatarInitial are denormalized from the creating user so a feed
// can be rendered without extra lookups. Likes always equals len(LikedBy).
// Comments is a bare counter with no backing entity.
type Post struct {
	ID            int64     `json:"id"`
	AuthorID      int64     `json:"authorId"`
	Author        string    `json:"author"`
	AvatarInitial string    `json:"avatar"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
	Likes         int       `json:"likes"`
	Comments      int       `json:"comments"`
	LikedBy       []int64   `json:"likedBy"`
}

// LikedByUser reports whether userID is in the post's liked-by set.
func (p *Post) LikedByUser(userID int64) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// PostRepository is the port for post persistence.
//
// CreatePost assigns the next post id from persisted state and must never
// reuse an id. ToggleLike flips the caller's membership in the liked-by set
// and returns the resulting like count; the membership check and the flip
// happen under the repository's mutual-exclusion boundary.
type PostRepository interface {
	CreatePost(ctx context.Context, authorID int64, content string, createdAt time.Time) (*Post, error)
	ListPosts(ctx context.Context) ([]Post, error)
	ToggleLike(ctx context.Context, postID, userID int64) (int, error)
}

// SplitByAuthor partitions posts into those authored by viewerID and everyone
// else's, preserving the input order within each partition.
func SplitByAuthor(posts []Post, viewerID int64) (mine, others []Post) {
	for _, p := range posts {
		if p.AuthorID == viewerID {
			mine = append(mine, p)
		} else {
			others = append(others, p)
		}
	}
	return mine, others
}

package jsonfile

import (
	"context"
	"sort"
	"time"

	"microblog/internal/domain"
)

var _ domain.PostRepository = (*Store)(nil)

func postFromRecord(rec postRecord) domain.Post {
	likedBy := append([]int64{}, rec.LikedBy...)
	return domain.Post{
		ID:            rec.ID,
		AuthorID:      rec.AuthorID,
		Author:        rec.Author,
		AvatarInitial: rec.Avatar,
		Content:       rec.Content,
		CreatedAt:     rec.Date,
		Likes:         len(likedBy),
		Comments:      rec.Comments,
		LikedBy:       likedBy,
	}
}

// CreatePost appends a new post to the document. The id comes from the
// persisted last_post_id counter so ids are never reused.
func (s *Store) CreatePost(ctx context.Context, authorID int64, content string, createdAt time.Time) (*domain.Post, error) {
	var created *domain.Post
	err := s.update(func(doc *document) (bool, error) {
		var author *domain.User
		for username, rec := range doc.Users {
			if rec.ID == authorID {
				author = userFromRecord(username, rec)
				break
			}
		}
		if author == nil {
			return false, domain.ErrUserNotFound
		}

		doc.LastPostID++
		rec := postRecord{
			ID:       doc.LastPostID,
			AuthorID: author.ID,
			Author:   author.Username,
			Avatar:   author.AvatarInitial,
			Content:  content,
			Date:     createdAt.UTC(),
			LikedBy:  []int64{},
		}
		doc.Posts = append(doc.Posts, rec)
		p := postFromRecord(rec)
		created = &p
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListPosts returns all posts, most recent first. Ties on creation time are
// broken by descending id.
func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	paths.Lock(s.path)
	defer paths.Unlock(s.path)

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(doc.Posts))
	for _, rec := range doc.Posts {
		posts = append(posts, postFromRecord(rec))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

// ToggleLike flips userID's membership in the post's liked-by set and returns
// the resulting like count.
func (s *Store) ToggleLike(ctx context.Context, postID, userID int64) (int, error) {
	var likes int
	err := s.update(func(doc *document) (bool, error) {
		for i := range doc.Posts {
			rec := &doc.Posts[i]
			if rec.ID != postID {
				continue
			}
			removed := false
			for j, id := range rec.LikedBy {
				if id == userID {
					rec.LikedBy = append(rec.LikedBy[:j], rec.LikedBy[j+1:]...)
					removed = true
					break
				}
			}
			if !removed {
				rec.LikedBy = append(rec.LikedBy, userID)
			}
			rec.Likes = len(rec.LikedBy)
			likes = rec.Likes
			return true, nil
		}
		return false, domain.ErrPostNotFound
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}

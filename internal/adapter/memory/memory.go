// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"microblog/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	posts    []domain.Post
	sessions map[string]*domain.Session

	userIDCounter int64
	postIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.PostRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash, displayName, avatarInitial string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:            db.userIDCounter,
		Username:      username,
		PasswordHash:  passwordHash,
		DisplayName:   displayName,
		AvatarInitial: avatarInitial,
		CreatedAt:     time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// --- PostRepository ---

// CreatePost appends a new post authored by authorID.
func (db *DB) CreatePost(ctx context.Context, authorID int64, content string, createdAt time.Time) (*domain.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var author *domain.User
	for _, u := range db.users {
		if u.ID == authorID {
			author = u
			break
		}
	}
	if author == nil {
		return nil, domain.ErrUserNotFound
	}

	db.postIDCounter++
	p := domain.Post{
		ID:            db.postIDCounter,
		AuthorID:      author.ID,
		Author:        author.Username,
		AvatarInitial: author.AvatarInitial,
		Content:       content,
		CreatedAt:     createdAt.UTC(),
		LikedBy:       []int64{},
	}
	db.posts = append(db.posts, p)

	ret := clonePost(p)
	return &ret, nil
}

// ListPosts returns all posts, most recent first. Ties on creation time are
// broken by descending id.
func (db *DB) ListPosts(ctx context.Context) ([]domain.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Post, 0, len(db.posts))
	for _, p := range db.posts {
		result = append(result, clonePost(p))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// ToggleLike flips userID's membership in the post's liked-by set and returns
// the resulting like count.
func (db *DB) ToggleLike(ctx context.Context, postID, userID int64) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.posts {
		p := &db.posts[i]
		if p.ID != postID {
			continue
		}
		removed := false
		for j, id := range p.LikedBy {
			if id == userID {
				p.LikedBy = append(p.LikedBy[:j], p.LikedBy[j+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			p.LikedBy = append(p.LikedBy, userID)
		}
		p.Likes = len(p.LikedBy)
		return p.Likes, nil
	}
	return 0, domain.ErrPostNotFound
}

func clonePost(p domain.Post) domain.Post {
	p.LikedBy = append([]int64{}, p.LikedBy...)
	return p
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		return s, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

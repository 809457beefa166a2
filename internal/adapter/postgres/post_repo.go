package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"microblog/internal/domain"
)

// CreatePost inserts a new post inside a transaction. BIGSERIAL ids are never
// reused.
func (d *DB) CreatePost(ctx context.Context, authorID int64, content string, createdAt time.Time) (*domain.Post, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var username, avatar string
	err = tx.QueryRowContext(ctx,
		"SELECT username, avatar_initial FROM users WHERE id = $1", authorID,
	).Scan(&username, &avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		"INSERT INTO posts (author_id, content, created_at) VALUES ($1, $2, $3) RETURNING id",
		authorID, content, createdAt.UTC(),
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.Post{
		ID:            id,
		AuthorID:      authorID,
		Author:        username,
		AvatarInitial: avatar,
		Content:       content,
		CreatedAt:     createdAt.UTC(),
		LikedBy:       []int64{},
	}, nil
}

// ListPosts returns all posts joined with their authors and liked-by sets,
// most recent first.
func (d *DB) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT p.id, p.author_id, u.username, u.avatar_initial, p.content, p.created_at
		 FROM posts p JOIN users u ON p.author_id = u.id
		 ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var posts []domain.Post
	index := make(map[int64]int)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Author, &p.AvatarInitial, &p.Content, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.LikedBy = []int64{}
		index[p.ID] = len(posts)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	likeRows, err := d.sql.QueryContext(ctx, "SELECT post_id, user_id FROM likes")
	if err != nil {
		return nil, err
	}
	defer likeRows.Close() //nolint:errcheck

	for likeRows.Next() {
		var postID, userID int64
		if err := likeRows.Scan(&postID, &userID); err != nil {
			return nil, err
		}
		if i, ok := index[postID]; ok {
			posts[i].LikedBy = append(posts[i].LikedBy, userID)
			posts[i].Likes = len(posts[i].LikedBy)
		}
	}
	if err := likeRows.Err(); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// ToggleLike flips userID's membership in the post's likes inside a
// transaction and returns the resulting count.
func (d *DB) ToggleLike(ctx context.Context, postID, userID int64) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = $1 FOR UPDATE", postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPostNotFound
	}
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM likes WHERE post_id = $1 AND user_id = $2", postID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete like: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO likes (post_id, user_id, created_at) VALUES ($1, $2, $3)",
			postID, userID, time.Now().UTC(),
		); err != nil {
			return 0, fmt.Errorf("insert like: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM likes WHERE post_id = $1", postID,
	).Scan(&count); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Package jsonfile implements the repositories over a single JSON document
// persisted to disk. Every operation loads the whole document, mutates it in
// memory and writes it back under a per-path lock, so concurrent callers in
// the same process cannot lose updates to each other.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fishy/rowlock"

	"microblog/internal/domain"
)

// paths serializes load-mutate-save cycles per database file across all Store
// handles in the process.
var paths = rowlock.NewRowLock(rowlock.MutexNewLocker)

// document is the full persisted state blob.
type document struct {
	Users         map[string]userRecord `json:"users"`
	Posts         []postRecord          `json:"posts"`
	LastUserID    int64                 `json:"last_user_id"`
	LastPostID    int64                 `json:"last_post_id"`
	LastCommentID int64                 `json:"last_comment_id"`
}

// userRecord is a user as stored in the document, keyed by username.
type userRecord struct {
	ID           int64     `json:"id"`
	Password     string    `json:"password"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	RegisteredAt time.Time `json:"registered_at"`
}

type postRecord struct {
	ID       int64     `json:"id"`
	AuthorID int64     `json:"author_id"`
	Author   string    `json:"author"`
	Avatar   string    `json:"avatar"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
	Likes    int       `json:"likes"`
	Comments int       `json:"comments"`
	LikedBy  []int64   `json:"liked_by"`
}

// Store persists all state in a single JSON file.
type Store struct {
	path string
}

// Open prepares a Store at path. On first-ever access with no existing file it
// writes an empty default document; an unreadable or malformed file is
// reported as storage unavailable.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	s := &Store{path: abs}

	paths.Lock(s.path)
	defer paths.Unlock(s.path)

	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		doc := &document{Users: map[string]userRecord{}, Posts: []postRecord{}}
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return s, nil
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	if doc.Users == nil {
		doc.Users = map[string]userRecord{}
	}
	for i := range doc.Posts {
		// The like count is derived state; recompute it from the set.
		doc.Posts[i].Likes = len(doc.Posts[i].LikedBy)
	}
	return &doc, nil
}

// save writes the document to a temporary file in the same directory and
// renames it over the old one, so a single interrupted writer cannot leave a
// partially written document behind.
func (s *Store) save(doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", domain.ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: close %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// update runs fn against the current document under the path lock and saves
// the document back when fn reports it dirty.
func (s *Store) update(fn func(doc *document) (bool, error)) error {
	paths.Lock(s.path)
	defer paths.Unlock(s.path)

	doc, err := s.load()
	if err != nil {
		return err
	}
	dirty, err := fn(doc)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return s.save(doc)
}

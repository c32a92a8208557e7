// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package articles

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"cloudeng.io/errors"
)

// ErrNotFound is returned for articles and comments that do not exist.
var ErrNotFound = errors.New("not found")

// Status is the publication status of an article.
type Status string

const (
	Draft     Status = "draft"
	Published Status = "published"
)

// Valid returns true for Draft and Published.
func (s Status) Valid() bool {
	return s == Draft || s == Published
}

// Article represents an article.
type Article struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// Comment represents a comment on an article.
type Comment struct {
	ID        int    `json:"id"`
	ArticleID int    `json:"article"`
	Title     string `json:"title"`
}

// Store is an in-memory store of articles and their comments, it is safe
// for concurrent use.
type Store struct {
	mu       sync.Mutex
	next     int
	articles map[int]Article
	comments map[int]Comment
}

// NewStore returns a new, empty, Store.
func NewStore() *Store {
	return &Store{
		articles: map[int]Article{},
		comments: map[int]Comment{},
	}
}

func (s *Store) id() int {
	s.next++
	return s.next
}

// CreateArticle stores a, assigning it a new ID. Articles are drafts
// unless a different status is specified.
func (s *Store) CreateArticle(a Article) Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if len(a.Status) == 0 {
		a.Status = Draft
	}
	s.articles[a.ID] = a
	return a
}

// Article returns the article with the specified ID.
func (s *Store) Article(id int) (Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return Article{}, fmt.Errorf("article %v: %w", id, ErrNotFound)
	}
	return a, nil
}

// UpdateArticle replaces the stored article with the same ID as a.
func (s *Store) UpdateArticle(a Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[a.ID]; !ok {
		return fmt.Errorf("article %v: %w", a.ID, ErrNotFound)
	}
	s.articles[a.ID] = a
	return nil
}

// DeleteArticle deletes the specified article and its comments.
func (s *Store) DeleteArticle(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[id]; !ok {
		return fmt.Errorf("article %v: %w", id, ErrNotFound)
	}
	delete(s.articles, id)
	maps.DeleteFunc(s.comments, func(_ int, c Comment) bool {
		return c.ArticleID == id
	})
	return nil
}

// Articles returns all articles ordered by ID.
func (s *Store) Articles() []Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.articles))
	slices.SortFunc(out, func(a, b Article) int { return a.ID - b.ID })
	return out
}

// AddComment stores c, assigning it a new ID.
func (s *Store) AddComment(c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[c.ArticleID]; !ok {
		return Comment{}, fmt.Errorf("article %v: %w", c.ArticleID, ErrNotFound)
	}
	c.ID = s.id()
	s.comments[c.ID] = c
	return c, nil
}

// Comment returns the specified comment on the specified article.
func (s *Store) Comment(articleID, id int) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.ArticleID != articleID {
		return Comment{}, fmt.Errorf("comment %v on article %v: %w", id, articleID, ErrNotFound)
	}
	return c, nil
}

// Comments returns the comments on the specified article ordered by ID.
func (s *Store) Comments(articleID int) []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Comment
	for _, c := range s.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Comment) int { return a.ID - b.ID })
	return out
}

// DeleteComment deletes the specified comment.
func (s *Store) DeleteComment(articleID, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.ArticleID != articleID {
		return fmt.Errorf("comment %v on article %v: %w", id, articleID, ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы сборников.
const (
	CollectionTypeSeries    = "series"
	CollectionTypeBook      = "book"
	CollectionTypeAnthology = "anthology"
)

// Статусы сборника.
const (
	CollectionStatusDraft     = "draft"
	CollectionStatusPublished = "published"
	CollectionStatusCompleted = "completed"
)

// Collection описывает серию или книгу из нескольких статей.
type Collection struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Slug         string     `db:"slug" json:"slug"`
	Description  *string    `db:"description" json:"description,omitempty"`
	Type         string     `db:"type" json:"type"`
	Status       string     `db:"status" json:"status"`
	AuthorID     uuid.UUID  `db:"author_id" json:"author_id"`
	IsPublic     bool       `db:"is_public" json:"is_public"`
	CoverImage   *string    `db:"cover_image" json:"cover_image,omitempty"`
	ArticleCount int        `db:"article_count" json:"article_count"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CollectionFilter описывает параметры выборки сборников.
type CollectionFilter struct {
	Status   *string
	Type     *string
	AuthorID *uuid.UUID
	Limit    int
	Offset   int
}

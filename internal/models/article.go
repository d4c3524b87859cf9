package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы статьи.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusArchived  = "archived"
)

// Article описывает публикацию автора.
type Article struct {
	ID                int64      `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Slug              string     `db:"slug" json:"slug"`
	Summary           *string    `db:"summary" json:"summary,omitempty"`
	Content           string     `db:"content" json:"content"`
	AuthorID          uuid.UUID  `db:"author_id" json:"author_id"`
	CategoryID        *int64     `db:"category_id" json:"category_id,omitempty"`
	CollectionID      *int64     `db:"collection_id" json:"collection_id,omitempty"`
	OrderInCollection *int       `db:"order_in_collection" json:"order_in_collection,omitempty"`
	Status            string     `db:"status" json:"status"`
	IsFeatured        bool       `db:"is_featured" json:"is_featured"`
	AllowComments     bool       `db:"allow_comments" json:"allow_comments"`
	CoverImage        *string    `db:"cover_image" json:"cover_image,omitempty"`
	ReadingTime       *int       `db:"reading_time" json:"reading_time,omitempty"`
	ViewCount         int        `db:"view_count" json:"view_count"`
	PublishedAt       *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// IsPublished сообщает, опубликована ли статья.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// ArticleFilter описывает параметры выборки статей.
type ArticleFilter struct {
	Status       *string
	CategoryID   *int64
	CollectionID *int64
	AuthorID     *uuid.UUID
	IsFeatured   *bool
	Search       string
	Limit        int
	Offset       int
}

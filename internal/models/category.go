package models

import (
	"time"
)

// Category описывает узел дерева рубрик.
//
// Дерево хранится плоско: каждый узел держит только parent_id, дочерние узлы
// находятся запросом по этому полю. Несколько корней допустимы (лес).
type Category struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Slug         string     `db:"slug" json:"slug"`
	Description  *string    `db:"description" json:"description,omitempty"`
	ParentID     *int64     `db:"parent_id" json:"parent_id,omitempty"`
	Color        *string    `db:"color" json:"color,omitempty"`
	Icon         *string    `db:"icon" json:"icon,omitempty"`
	OrderIndex   int        `db:"order_index" json:"order_index"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	ArticleCount int        `db:"article_count" json:"article_count"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CategoryTreeNode — узел вложенного представления дерева рубрик.
// Level считается от корня (корень = 0), Path — имена предков от корня
// до самого узла через разделитель " > ".
type CategoryTreeNode struct {
	Category
	Level    int                 `json:"level"`
	Path     string              `json:"path"`
	Children []*CategoryTreeNode `json:"children"`
}

// CategoryStats — сводная статистика по рубрикам.
type CategoryStats struct {
	TotalCategories        int `db:"total_categories" json:"total_categories"`
	ActiveCategories       int `db:"active_categories" json:"active_categories"`
	RootCategories         int `db:"root_categories" json:"root_categories"`
	CategoriesWithArticles int `db:"categories_with_articles" json:"categories_with_articles"`
	MaxDepth               int `db:"-" json:"max_depth"`
}

// Tag описывает метку статьи. Связь со статьями — многие-ко-многим
// через таблицу article_tags.
type Tag struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Slug       string    `db:"slug" json:"slug"`
	UsageCount int       `db:"usage_count" json:"usage_count"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

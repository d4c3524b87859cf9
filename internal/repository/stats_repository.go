package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/writervault/backend/internal/models"
)

// StatsRepository собирает сводную статистику по всем таблицам контента.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview возвращает счётчики по пользователям и контенту одним запросом.
func (r *StatsRepository) Overview(ctx context.Context) (*models.ContentStats, error) {
	var stats models.ContentStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_active) AS active_users,
			(SELECT COUNT(*) FROM articles) AS total_articles,
			(SELECT COUNT(*) FROM articles WHERE status = 'published') AS published_articles,
			(SELECT COUNT(*) FROM articles WHERE status = 'draft') AS draft_articles,
			(SELECT COUNT(*) FROM collections) AS total_collections,
			(SELECT COUNT(*) FROM categories) AS total_categories,
			(SELECT COUNT(*) FROM tags) AS total_tags`)
	if err != nil {
		return nil, fmt.Errorf("load content stats: %w", err)
	}
	return &stats, nil
}

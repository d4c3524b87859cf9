package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository/common"
)

// CollectionRepository инкапсулирует работу с таблицей collections.
type CollectionRepository struct {
	db *sqlx.DB
}

func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) GetByID(ctx context.Context, id int64) (*models.Collection, error) {
	return common.GetByID[models.Collection](ctx, r.db, "collections", id, apperror.ErrCollectionNotFound)
}

func (r *CollectionRepository) GetBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	return common.GetByField[models.Collection](ctx, r.db, "collections", "slug", slug, apperror.ErrCollectionNotFound)
}

func (r *CollectionRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE slug = $1)`, slug)
	if err != nil {
		return false, fmt.Errorf("check collection slug: %w", err)
	}
	return exists, nil
}

func (r *CollectionRepository) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argID))
		args = append(args, *filter.Type)
		argID++
	}
	if filter.AuthorID != nil {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argID))
		args = append(args, *filter.AuthorID)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM collections"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}

	query := "SELECT * FROM collections" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	collections := []models.Collection{}
	if err := r.db.SelectContext(ctx, &collections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}
	return collections, total, nil
}

func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	query := `
		INSERT INTO collections (title, slug, description, type, status, author_id, is_public, cover_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		collection.Title, collection.Slug, collection.Description, collection.Type,
		collection.Status, collection.AuthorID, collection.IsPublic, collection.CoverImage,
	).Scan(&collection.ID, &collection.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (r *CollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	query := `
		UPDATE collections
		SET title = :title, slug = :slug, description = :description, type = :type,
		    status = :status, is_public = :is_public, cover_image = :cover_image,
		    published_at = :published_at, updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, collection)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("update collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrCollectionNotFound
	}
	return nil
}

func (r *CollectionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrCollectionNotFound
	}
	return nil
}

// CountArticles считает статьи в сборнике.
func (r *CollectionRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM articles WHERE collection_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("count collection articles: %w", err)
	}
	return count, nil
}

// AttachArticle включает статью в сборник в конец порядка чтения.
// Выбор порядкового номера и привязка выполняются в одной транзакции.
func (r *CollectionRepository) AttachArticle(ctx context.Context, collectionID, articleID int64) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var next int
		err := tx.GetContext(ctx, &next, `
			SELECT COALESCE(MAX(order_in_collection), 0) + 1
			FROM articles WHERE collection_id = $1`, collectionID)
		if err != nil {
			return fmt.Errorf("next collection order: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE articles
			SET collection_id = $1, order_in_collection = $2, updated_at = NOW()
			WHERE id = $3`,
			collectionID, next, articleID)
		if err != nil {
			return fmt.Errorf("attach article: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.ErrArticleNotFound
		}
		return nil
	})
}

// DetachArticle исключает статью из её сборника.
func (r *CollectionRepository) DetachArticle(ctx context.Context, articleID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET collection_id = NULL, order_in_collection = NULL, updated_at = NOW()
		WHERE id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("detach article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrArticleNotFound
	}
	return nil
}

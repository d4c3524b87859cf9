package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository/common"
)

// CategoryRepository инкапсулирует работу с таблицей categories.
// Древовидные операции (поиск циклов, построение дерева) живут в сервисе,
// репозиторий отдаёт плоские выборки.
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return common.GetByID[models.Category](ctx, r.db, "categories", id, apperror.ErrCategoryNotFound)
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return common.GetByField[models.Category](ctx, r.db, "categories", "slug", slug, apperror.ErrCategoryNotFound)
}

// GetByName ищет категорию по имени без учёта регистра: уникальность имён
// в дереве тоже регистронезависимая.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category,
		`SELECT * FROM categories WHERE LOWER(name) = LOWER($1)`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return &category, nil
}

// SlugExists используется генератором слагов при подборе свободного варианта.
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`, slug)
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return exists, nil
}

// List возвращает все категории в каноническом порядке обхода:
// order_index, затем имя.
func (r *CategoryRepository) List(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	query := `SELECT * FROM categories`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY order_index, name`

	categories := []models.Category{}
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListChildren возвращает прямых потомков категории.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentID int64) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.SelectContext(ctx, &categories,
		`SELECT * FROM categories WHERE parent_id = $1 ORDER BY order_index, name`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list category children: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE parent_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check category children: %w", err)
	}
	return exists, nil
}

// CountArticles считает статьи, привязанные к категории.
func (r *CategoryRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM articles WHERE category_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("count category articles: %w", err)
	}
	return count, nil
}

// Create вставляет категорию. Если orderIndex == nil, она встаёт в конец
// своего уровня: max(order_index)+1 среди братьев.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category, orderIndex *int) error {
	query := `
		INSERT INTO categories (name, slug, description, parent_id, color, icon, order_index, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			COALESCE($7, (SELECT COALESCE(MAX(order_index), -1) + 1 FROM categories c WHERE c.parent_id IS NOT DISTINCT FROM $4)),
			$8, NOW())
		RETURNING id, order_index, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		category.Name, category.Slug, category.Description, category.ParentID,
		category.Color, category.Icon, orderIndex, category.IsActive,
	).Scan(&category.ID, &category.OrderIndex, &category.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = :name, slug = :slug, description = :description, parent_id = :parent_id,
		    color = :color, icon = :icon, order_index = :order_index, is_active = :is_active,
		    updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrCategoryNotFound
	}
	return nil
}

// BulkSetActive массово переключает флаг активности. Несуществующие ID
// просто не попадают в выборку; вернувшееся число - количество реально
// изменённых строк.
func (r *CategoryRepository) BulkSetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET is_active = $1, updated_at = NOW()
		WHERE id = ANY($2)`,
		active, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("bulk set categories active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk set categories active: %w", err)
	}
	return n, nil
}

// ListArticleCounts возвращает число статей по каждой категории, где они есть.
func (r *CategoryRepository) ListArticleCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, COUNT(*)
		FROM articles
		WHERE category_id IS NOT NULL
		GROUP BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("list article counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan article count: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// Stats возвращает сводку по дереву категорий одним запросом.
func (r *CategoryRepository) Stats(ctx context.Context) (*models.CategoryStats, error) {
	var stats models.CategoryStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*)                                  AS total_categories,
			COUNT(*) FILTER (WHERE is_active)         AS active_categories,
			COUNT(*) FILTER (WHERE parent_id IS NULL) AS root_categories,
			(SELECT COUNT(DISTINCT category_id) FROM articles WHERE category_id IS NOT NULL)
			                                          AS categories_with_articles
		FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return &stats, nil
}

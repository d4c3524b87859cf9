package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository/common"
)

// ArticleRepository инкапсулирует работу с таблицами articles, tags и article_tags.
type ArticleRepository struct {
	db *sqlx.DB
}

func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	return common.GetByID[models.Article](ctx, r.db, "articles", id, apperror.ErrArticleNotFound)
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return common.GetByField[models.Article](ctx, r.db, "articles", "slug", slug, apperror.ErrArticleNotFound)
}

func (r *ArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)`, slug)
	if err != nil {
		return false, fmt.Errorf("check article slug: %w", err)
	}
	return exists, nil
}

// List строит выборку по фильтру. Условия добавляются динамически,
// порядок аргументов совпадает с порядком плейсхолдеров.
func (r *ArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argID := 1

	addCondition := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argID))
		args = append(args, value)
		argID++
	}

	if filter.Status != nil {
		addCondition("status = $%d", *filter.Status)
	}
	if filter.CategoryID != nil {
		addCondition("category_id = $%d", *filter.CategoryID)
	}
	if filter.CollectionID != nil {
		addCondition("collection_id = $%d", *filter.CollectionID)
	}
	if filter.AuthorID != nil {
		addCondition("author_id = $%d", *filter.AuthorID)
	}
	if filter.IsFeatured != nil {
		addCondition("is_featured = $%d", *filter.IsFeatured)
	}
	if filter.Search != "" {
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM articles"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	query := "SELECT * FROM articles" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	articles := []models.Article{}
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return articles, total, nil
}

// ListByCollection возвращает статьи сборника в порядке чтения.
func (r *ArticleRepository) ListByCollection(ctx context.Context, collectionID int64) ([]models.Article, error) {
	articles := []models.Article{}
	err := r.db.SelectContext(ctx, &articles, `
		SELECT * FROM articles
		WHERE collection_id = $1
		ORDER BY order_in_collection NULLS LAST, created_at`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list collection articles: %w", err)
	}
	return articles, nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO articles (title, slug, summary, content, author_id, category_id,
			status, is_featured, allow_comments, cover_image, reading_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		article.Title, article.Slug, article.Summary, article.Content,
		article.AuthorID, article.CategoryID, article.Status,
		article.IsFeatured, article.AllowComments, article.CoverImage, article.ReadingTime,
	).Scan(&article.ID, &article.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Update(ctx context.Context, article *models.Article) error {
	query := `
		UPDATE articles
		SET title = :title, slug = :slug, summary = :summary, content = :content,
		    category_id = :category_id, status = :status, is_featured = :is_featured,
		    allow_comments = :allow_comments, cover_image = :cover_image,
		    reading_time = :reading_time, published_at = :published_at, updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, article)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("update article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrArticleNotFound
	}
	return nil
}

// SetStatus меняет статус статьи; published_at выставляется при первой публикации.
func (r *ArticleRepository) SetStatus(ctx context.Context, id int64, status string, publishedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET status = $1, published_at = COALESCE(published_at, $2), updated_at = NOW()
		WHERE id = $3`,
		status, publishedAt, id)
	if err != nil {
		return fmt.Errorf("set article status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// --- Теги ---

// ReplaceTags атомарно заменяет набор тегов статьи: создаёт недостающие теги,
// перепривязывает article_tags и пересчитывает usage_count. Имена и слаги
// ожидаются уже нормализованными сервисом, порядок слайсов общий.
func (r *ArticleRepository) ReplaceTags(ctx context.Context, articleID int64, names, slugs []string) ([]models.Tag, error) {
	var tags []models.Tag
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		tags, err = upsertTags(ctx, tx, names, slugs)
		if err != nil {
			return err
		}
		tagIDs := make([]int64, len(tags))
		for i, t := range tags {
			tagIDs[i] = t.ID
		}
		return replaceArticleTags(ctx, tx, articleID, tagIDs)
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// upsertTags создаёт недостающие теги и возвращает полный список по именам.
func upsertTags(ctx context.Context, tx *sqlx.Tx, names, slugs []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tags := []models.Tag{}
	err := tx.SelectContext(ctx, &tags, `
		WITH inserted AS (
			INSERT INTO tags (name, slug, created_at)
			SELECT n.name, n.slug, NOW()
			FROM unnest($1::text[], $2::text[]) AS n(name, slug)
			ON CONFLICT (name) DO NOTHING
			RETURNING *
		)
		SELECT * FROM inserted
		UNION ALL
		SELECT t.* FROM tags t WHERE t.name = ANY($1::text[])
			AND NOT EXISTS (SELECT 1 FROM inserted i WHERE i.name = t.name)`,
		pq.Array(names), pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("upsert tags: %w", err)
	}
	return tags, nil
}

func replaceArticleTags(ctx context.Context, tx *sqlx.Tx, articleID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_tags WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("clear article tags: %w", err)
	}
	if len(tagIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO article_tags (article_id, tag_id)
			SELECT $1, unnest($2::bigint[])`,
			articleID, pq.Array(tagIDs)); err != nil {
			return fmt.Errorf("set article tags: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = (
			SELECT COUNT(*) FROM article_tags at WHERE at.tag_id = tags.id
		)`); err != nil {
		return fmt.Errorf("refresh tag usage: %w", err)
	}
	return nil
}

// ListArticleTags возвращает теги статьи по алфавиту.
func (r *ArticleRepository) ListArticleTags(ctx context.Context, articleID int64) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := r.db.SelectContext(ctx, &tags, `
		SELECT t.* FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = $1
		ORDER BY t.name`, articleID)
	if err != nil {
		return nil, fmt.Errorf("list article tags: %w", err)
	}
	return tags, nil
}

// ListTags возвращает теги по убыванию популярности.
func (r *ArticleRepository) ListTags(ctx context.Context, limit int) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := r.db.SelectContext(ctx, &tags,
		`SELECT * FROM tags WHERE is_active = TRUE ORDER BY usage_count DESC, name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository/common"
	"github.com/writervault/backend/internal/slugify"
	"github.com/writervault/backend/internal/validation"
)

// readingSpeedWPM — средняя скорость чтения для оценки времени статьи.
const readingSpeedWPM = 200

// ArticleRepository описывает хранилище статей и тегов, достаточное сервису.
type ArticleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
	ListByCollection(ctx context.Context, collectionID int64) ([]models.Article, error)
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status string, publishedAt *time.Time) error
	IncrementViewCount(ctx context.Context, id int64) error
	ReplaceTags(ctx context.Context, articleID int64, names, slugs []string) ([]models.Tag, error)
	ListArticleTags(ctx context.Context, articleID int64) ([]models.Tag, error)
	ListTags(ctx context.Context, limit int) ([]models.Tag, error)
}

// ArticleService управляет публикациями.
type ArticleService struct {
	articles   ArticleRepository
	categories CategoryRepository
}

// ArticleWithTags — статья вместе со своими тегами.
type ArticleWithTags struct {
	models.Article
	Tags []models.Tag `json:"tags"`
}

// CreateArticleInput содержит данные новой статьи.
type CreateArticleInput struct {
	Title         string
	Summary       *string
	Content       string
	CategoryID    *int64
	Tags          []string
	IsFeatured    bool
	AllowComments *bool
}

// UpdateArticleInput содержит частичное обновление статьи.
type UpdateArticleInput struct {
	Title         *string
	Summary       *string
	Content       *string
	CategoryID    *int64
	Tags          []string
	TagsSet       bool
	IsFeatured    *bool
	AllowComments *bool
	CoverImage    *string
}

// NewArticleService создаёт сервис статей.
func NewArticleService(articles ArticleRepository, categories CategoryRepository) *ArticleService {
	return &ArticleService{
		articles:   articles,
		categories: categories,
	}
}

// Create сохраняет новую статью в статусе draft.
func (s *ArticleService) Create(ctx context.Context, authorID uuid.UUID, in CreateArticleInput) (*ArticleWithTags, error) {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateArticleTitle(title); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if err := validation.ValidateArticleContent(in.Content); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if err := validation.ValidateTags(in.Tags); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}

	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, apperror.ErrCategoryNotFound) {
				return nil, apperror.NewValidation("категория не найдена")
			}
			return nil, err
		}
	}

	slug, err := slugify.Unique(ctx, slugify.Make(title), s.articles.SlugExists)
	if err != nil {
		return nil, err
	}

	allowComments := true
	if in.AllowComments != nil {
		allowComments = *in.AllowComments
	}
	readingTime := estimateReadingTime(in.Content)

	article := &models.Article{
		Title:         title,
		Slug:          slug,
		Summary:       in.Summary,
		Content:       in.Content,
		AuthorID:      authorID,
		CategoryID:    in.CategoryID,
		Status:        models.ArticleStatusDraft,
		IsFeatured:    in.IsFeatured,
		AllowComments: allowComments,
		ReadingTime:   &readingTime,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.NewConflict("статья с таким слагом уже существует")
		}
		return nil, err
	}

	tags, err := s.saveTags(ctx, article.ID, in.Tags)
	if err != nil {
		return nil, err
	}
	return &ArticleWithTags{Article: *article, Tags: tags}, nil
}

// Update меняет статью. Разрешено автору и администратору.
func (s *ArticleService) Update(ctx context.Context, id int64, actor *models.User, in UpdateArticleInput) (*ArticleWithTags, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(article, actor); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validation.ValidateArticleTitle(title); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		if title != article.Title {
			// Собственный slug статьи не считается коллизией при переименовании.
			takenByOther := func(ctx context.Context, candidate string) (bool, error) {
				existing, err := s.articles.GetBySlug(ctx, candidate)
				if errors.Is(err, apperror.ErrArticleNotFound) {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				return existing.ID != article.ID, nil
			}
			slug, err := slugify.Unique(ctx, slugify.Make(title), takenByOther)
			if err != nil {
				return nil, err
			}
			article.Slug = slug
		}
		article.Title = title
	}
	if in.Content != nil {
		if err := validation.ValidateArticleContent(*in.Content); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		article.Content = *in.Content
		readingTime := estimateReadingTime(*in.Content)
		article.ReadingTime = &readingTime
	}
	if in.Summary != nil {
		article.Summary = in.Summary
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, apperror.ErrCategoryNotFound) {
				return nil, apperror.NewValidation("категория не найдена")
			}
			return nil, err
		}
		article.CategoryID = in.CategoryID
	}
	if in.IsFeatured != nil {
		article.IsFeatured = *in.IsFeatured
	}
	if in.AllowComments != nil {
		article.AllowComments = *in.AllowComments
	}
	if in.CoverImage != nil {
		article.CoverImage = in.CoverImage
	}

	if err := s.articles.Update(ctx, article); err != nil {
		return nil, err
	}

	var tags []models.Tag
	if in.TagsSet {
		if err := validation.ValidateTags(in.Tags); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		tags, err = s.saveTags(ctx, article.ID, in.Tags)
		if err != nil {
			return nil, err
		}
	} else {
		tags, err = s.articles.ListArticleTags(ctx, article.ID)
		if err != nil {
			return nil, err
		}
	}
	return &ArticleWithTags{Article: *article, Tags: tags}, nil
}

// Delete удаляет статью. Разрешено автору и администратору.
func (s *ArticleService) Delete(ctx context.Context, id int64, actor *models.User) error {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(article, actor); err != nil {
		return err
	}
	return s.articles.Delete(ctx, id)
}

// Publish переводит статью в published. Время первой публикации сохраняется
// и не сбрасывается при последующих переизданиях.
func (s *ArticleService) Publish(ctx context.Context, id int64, actor *models.User) (*models.Article, error) {
	return s.setStatus(ctx, id, actor, models.ArticleStatusPublished)
}

// Unpublish возвращает статью в draft.
func (s *ArticleService) Unpublish(ctx context.Context, id int64, actor *models.User) (*models.Article, error) {
	return s.setStatus(ctx, id, actor, models.ArticleStatusDraft)
}

// Archive переводит статью в archived.
func (s *ArticleService) Archive(ctx context.Context, id int64, actor *models.User) (*models.Article, error) {
	return s.setStatus(ctx, id, actor, models.ArticleStatusArchived)
}

func (s *ArticleService) setStatus(ctx context.Context, id int64, actor *models.User, status string) (*models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(article, actor); err != nil {
		return nil, err
	}

	var publishedAt *time.Time
	if status == models.ArticleStatusPublished {
		now := time.Now()
		publishedAt = &now
	}

	if err := s.articles.SetStatus(ctx, id, status, publishedAt); err != nil {
		return nil, err
	}
	return s.articles.GetByID(ctx, id)
}

// GetByID возвращает статью с тегами. Черновики и архив видны только
// автору и администратору.
func (s *ArticleService) GetByID(ctx context.Context, id int64, actor *models.User) (*ArticleWithTags, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withVisibility(ctx, article, actor)
}

// GetBySlug возвращает статью по слагу с теми же правилами видимости.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string, actor *models.User) (*ArticleWithTags, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withVisibility(ctx, article, actor)
}

func (s *ArticleService) withVisibility(ctx context.Context, article *models.Article, actor *models.User) (*ArticleWithTags, error) {
	if !article.IsPublished() {
		if actor == nil || (actor.ID != article.AuthorID && !actor.IsAdmin()) {
			return nil, apperror.ErrArticleNotFound
		}
	} else {
		// Просмотры считаем только по опубликованным.
		_ = s.articles.IncrementViewCount(ctx, article.ID)
	}

	tags, err := s.articles.ListArticleTags(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	return &ArticleWithTags{Article: *article, Tags: tags}, nil
}

// List возвращает страницу статей. Для неавторизованных и чужих выборок
// принудительно остаются только опубликованные.
func (s *ArticleService) List(ctx context.Context, filter models.ArticleFilter, actor *models.User) ([]models.Article, int, error) {
	restricted := actor == nil || !actor.IsAdmin()
	if restricted {
		ownFeed := actor != nil && filter.AuthorID != nil && *filter.AuthorID == actor.ID
		if !ownFeed {
			published := models.ArticleStatusPublished
			filter.Status = &published
		}
	}

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.articles.List(ctx, filter)
}

// ListTags возвращает популярные теги.
func (s *ArticleService) ListTags(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.articles.ListTags(ctx, limit)
}

// saveTags заменяет набор тегов статьи, создавая недостающие.
func (s *ArticleService) saveTags(ctx context.Context, articleID int64, names []string) ([]models.Tag, error) {
	normalized := make([]string, 0, len(names))
	slugs := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		normalized = append(normalized, name)
		slugs = append(slugs, slugify.Make(name))
	}

	return s.articles.ReplaceTags(ctx, articleID, normalized, slugs)
}

// checkOwnership разрешает операцию автору статьи и администратору.
func (s *ArticleService) checkOwnership(article *models.Article, actor *models.User) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}
	if article.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperror.ErrForbidden
	}
	return nil
}

// estimateReadingTime оценивает время чтения в минутах, минимум одна.
func estimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + readingSpeedWPM - 1) / readingSpeedWPM
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

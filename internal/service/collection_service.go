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

// CollectionRepository описывает хранилище сборников, достаточное сервису.
type CollectionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Collection, error)
	GetBySlug(ctx context.Context, slug string) (*models.Collection, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error)
	CountArticles(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, collection *models.Collection) error
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, id int64) error
	AttachArticle(ctx context.Context, collectionID, articleID int64) error
	DetachArticle(ctx context.Context, articleID int64) error
}

// CollectionService управляет сборниками статей.
type CollectionService struct {
	collections CollectionRepository
	articles    ArticleRepository
}

// CreateCollectionInput содержит данные нового сборника.
type CreateCollectionInput struct {
	Title       string
	Description *string
	Type        string
	IsPublic    *bool
}

// UpdateCollectionInput содержит частичное обновление сборника.
type UpdateCollectionInput struct {
	Title       *string
	Description *string
	Type        *string
	Status      *string
	IsPublic    *bool
	CoverImage  *string
}

// CollectionWithArticles — сборник вместе со статьями в порядке чтения.
type CollectionWithArticles struct {
	models.Collection
	Articles []models.Article `json:"articles"`
}

// NewCollectionService создаёт сервис сборников.
func NewCollectionService(collections CollectionRepository, articles ArticleRepository) *CollectionService {
	return &CollectionService{
		collections: collections,
		articles:    articles,
	}
}

// Create сохраняет новый сборник в статусе draft.
func (s *CollectionService) Create(ctx context.Context, authorID uuid.UUID, in CreateCollectionInput) (*models.Collection, error) {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateCollectionTitle(title); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}

	ctype := in.Type
	if ctype == "" {
		ctype = models.CollectionTypeSeries
	}
	if !validCollectionType(ctype) {
		return nil, apperror.NewValidation("недопустимый тип сборника")
	}

	slug, err := slugify.Unique(ctx, slugify.Make(title), s.collections.SlugExists)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	collection := &models.Collection{
		Title:       title,
		Slug:        slug,
		Description: in.Description,
		Type:        ctype,
		Status:      models.CollectionStatusDraft,
		AuthorID:    authorID,
		IsPublic:    isPublic,
	}

	if err := s.collections.Create(ctx, collection); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.NewConflict("сборник с таким слагом уже существует")
		}
		return nil, err
	}
	return collection, nil
}

// Update меняет сборник. Разрешено автору и администратору.
func (s *CollectionService) Update(ctx context.Context, id int64, actor *models.User, in UpdateCollectionInput) (*models.Collection, error) {
	collection, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(collection, actor); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validation.ValidateCollectionTitle(title); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		if title != collection.Title {
			// Собственный slug сборника не считается коллизией при переименовании.
			takenByOther := func(ctx context.Context, candidate string) (bool, error) {
				existing, err := s.collections.GetBySlug(ctx, candidate)
				if errors.Is(err, apperror.ErrCollectionNotFound) {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				return existing.ID != collection.ID, nil
			}
			slug, err := slugify.Unique(ctx, slugify.Make(title), takenByOther)
			if err != nil {
				return nil, err
			}
			collection.Slug = slug
		}
		collection.Title = title
	}
	if in.Description != nil {
		collection.Description = in.Description
	}
	if in.Type != nil {
		if !validCollectionType(*in.Type) {
			return nil, apperror.NewValidation("недопустимый тип сборника")
		}
		collection.Type = *in.Type
	}
	if in.Status != nil {
		if !validCollectionStatus(*in.Status) {
			return nil, apperror.NewValidation("недопустимый статус сборника")
		}
		if *in.Status == models.CollectionStatusPublished && collection.PublishedAt == nil {
			now := time.Now()
			collection.PublishedAt = &now
		}
		collection.Status = *in.Status
	}
	if in.IsPublic != nil {
		collection.IsPublic = *in.IsPublic
	}
	if in.CoverImage != nil {
		collection.CoverImage = in.CoverImage
	}

	if err := s.collections.Update(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// Delete удаляет сборник; статьи остаются, но отвязываются от него базой.
func (s *CollectionService) Delete(ctx context.Context, id int64, actor *models.User) error {
	collection, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(collection, actor); err != nil {
		return err
	}
	return s.collections.Delete(ctx, id)
}

// GetByID возвращает сборник со статьями. Непубличные сборники видны только
// автору и администратору.
func (s *CollectionService) GetByID(ctx context.Context, id int64, actor *models.User) (*CollectionWithArticles, error) {
	collection, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withArticles(ctx, collection, actor)
}

// GetBySlug возвращает сборник по слагу с теми же правилами видимости.
func (s *CollectionService) GetBySlug(ctx context.Context, slug string, actor *models.User) (*CollectionWithArticles, error) {
	collection, err := s.collections.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withArticles(ctx, collection, actor)
}

func (s *CollectionService) withArticles(ctx context.Context, collection *models.Collection, actor *models.User) (*CollectionWithArticles, error) {
	if !collection.IsPublic || collection.Status == models.CollectionStatusDraft {
		if actor == nil || (actor.ID != collection.AuthorID && !actor.IsAdmin()) {
			return nil, apperror.ErrCollectionNotFound
		}
	}

	articles, err := s.articles.ListByCollection(ctx, collection.ID)
	if err != nil {
		return nil, err
	}
	collection.ArticleCount = len(articles)
	return &CollectionWithArticles{Collection: *collection, Articles: articles}, nil
}

// List возвращает страницу сборников с подсчётом статей.
func (s *CollectionService) List(ctx context.Context, filter models.CollectionFilter, actor *models.User) ([]models.Collection, int, error) {
	restricted := actor == nil || !actor.IsAdmin()
	if restricted {
		ownFeed := actor != nil && filter.AuthorID != nil && *filter.AuthorID == actor.ID
		if !ownFeed {
			published := models.CollectionStatusPublished
			filter.Status = &published
		}
	}

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	collections, total, err := s.collections.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range collections {
		count, err := s.collections.CountArticles(ctx, collections[i].ID)
		if err != nil {
			return nil, 0, err
		}
		collections[i].ArticleCount = count
	}
	return collections, total, nil
}

// AddArticle включает статью в сборник в конец порядка чтения.
// Статья и сборник должны принадлежать одному автору.
func (s *CollectionService) AddArticle(ctx context.Context, collectionID, articleID int64, actor *models.User) error {
	collection, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(collection, actor); err != nil {
		return err
	}

	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return err
	}
	if article.AuthorID != collection.AuthorID {
		return apperror.NewValidation("статья и сборник принадлежат разным авторам")
	}
	if article.CollectionID != nil && *article.CollectionID != collectionID {
		return apperror.NewConflict("статья уже входит в другой сборник")
	}

	return s.collections.AttachArticle(ctx, collectionID, articleID)
}

// RemoveArticle исключает статью из сборника.
func (s *CollectionService) RemoveArticle(ctx context.Context, collectionID, articleID int64, actor *models.User) error {
	collection, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(collection, actor); err != nil {
		return err
	}

	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return err
	}
	if article.CollectionID == nil || *article.CollectionID != collectionID {
		return apperror.NewValidation("статья не входит в этот сборник")
	}

	return s.collections.DetachArticle(ctx, articleID)
}

func (s *CollectionService) checkOwnership(collection *models.Collection, actor *models.User) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}
	if collection.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperror.ErrForbidden
	}
	return nil
}

func validCollectionType(t string) bool {
	switch t {
	case models.CollectionTypeSeries, models.CollectionTypeBook, models.CollectionTypeAnthology:
		return true
	}
	return false
}

func validCollectionStatus(s string) bool {
	switch s {
	case models.CollectionStatusDraft, models.CollectionStatusPublished, models.CollectionStatusCompleted:
		return true
	}
	return false
}

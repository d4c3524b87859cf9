package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
)

// fakeCollectionRepo — хранилище сборников в памяти. Привязка статей идёт
// через общий fakeArticleRepo, как в базе через общую таблицу articles.
type fakeCollectionRepo struct {
	nextID   int64
	items    map[int64]*models.Collection
	articles *fakeArticleRepo
}

func newFakeCollectionRepo(articles *fakeArticleRepo) *fakeCollectionRepo {
	return &fakeCollectionRepo{
		items:    make(map[int64]*models.Collection),
		articles: articles,
	}
}

func (r *fakeCollectionRepo) GetByID(_ context.Context, id int64) (*models.Collection, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, apperror.ErrCollectionNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCollectionRepo) GetBySlug(_ context.Context, slug string) (*models.Collection, error) {
	for _, c := range r.items {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.ErrCollectionNotFound
}

func (r *fakeCollectionRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, c := range r.items {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCollectionRepo) List(_ context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	out := []models.Collection{}
	for _, c := range r.items {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.AuthorID != nil && c.AuthorID != *filter.AuthorID {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *fakeCollectionRepo) CountArticles(_ context.Context, id int64) (int, error) {
	count := 0
	for _, a := range r.articles.items {
		if a.CollectionID != nil && *a.CollectionID == id {
			count++
		}
	}
	return count, nil
}

func (r *fakeCollectionRepo) Create(_ context.Context, collection *models.Collection) error {
	r.nextID++
	collection.ID = r.nextID
	collection.CreatedAt = time.Now()
	copied := *collection
	r.items[collection.ID] = &copied
	return nil
}

func (r *fakeCollectionRepo) Update(_ context.Context, collection *models.Collection) error {
	if _, ok := r.items[collection.ID]; !ok {
		return apperror.ErrCollectionNotFound
	}
	copied := *collection
	r.items[collection.ID] = &copied
	return nil
}

func (r *fakeCollectionRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return apperror.ErrCollectionNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCollectionRepo) AttachArticle(_ context.Context, collectionID, articleID int64) error {
	a, ok := r.articles.items[articleID]
	if !ok {
		return apperror.ErrArticleNotFound
	}
	next := 1
	for _, other := range r.articles.items {
		if other.CollectionID != nil && *other.CollectionID == collectionID &&
			other.OrderInCollection != nil && *other.OrderInCollection >= next {
			next = *other.OrderInCollection + 1
		}
	}
	a.CollectionID = &collectionID
	a.OrderInCollection = &next
	return nil
}

func (r *fakeCollectionRepo) DetachArticle(_ context.Context, articleID int64) error {
	a, ok := r.articles.items[articleID]
	if !ok {
		return apperror.ErrArticleNotFound
	}
	a.CollectionID = nil
	a.OrderInCollection = nil
	return nil
}

func newCollectionService() (*CollectionService, *ArticleService, *fakeCollectionRepo, *fakeArticleRepo) {
	articles := newFakeArticleRepo()
	collections := newFakeCollectionRepo(articles)
	return NewCollectionService(collections, articles),
		NewArticleService(articles, newFakeCategoryRepo()),
		collections, articles
}

func TestCollectionServiceOwnership(t *testing.T) {
	svc, _, _, _ := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Городские рассказы"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if collection.Status != models.CollectionStatusDraft {
		t.Errorf("статус нового сборника %q, ожидался draft", collection.Status)
	}

	newTitle := "Перехват"
	if _, err := svc.Update(ctx, collection.ID, nil, UpdateCollectionInput{Title: &newTitle}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Update без авторизации: %v, ожидался ErrUnauthorized", err)
	}
	stranger := authorActor(uuid.New())
	if _, err := svc.Update(ctx, collection.ID, stranger, UpdateCollectionInput{Title: &newTitle}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update чужим автором: %v, ожидался ErrForbidden", err)
	}
	if err := svc.Delete(ctx, collection.ID, stranger); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete чужим автором: %v, ожидался ErrForbidden", err)
	}
	if _, err := svc.Update(ctx, collection.ID, adminActor(), UpdateCollectionInput{Title: &newTitle}); err != nil {
		t.Errorf("Update администратором: %v", err)
	}
}

func TestCollectionServiceRenameKeepsOwnSlug(t *testing.T) {
	svc, _, _, _ := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()
	actor := authorActor(authorID)

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Тихие вечера"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	punctuated := "Тихие вечера!"
	renamed, err := svc.Update(ctx, collection.ID, actor, UpdateCollectionInput{Title: &punctuated})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if renamed.Slug != collection.Slug {
		t.Errorf("slug после переименования = %q, ожидался %q", renamed.Slug, collection.Slug)
	}
}

func TestCollectionServicePublishKeepsFirstPublication(t *testing.T) {
	svc, _, _, _ := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()
	actor := authorActor(authorID)

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Сезонный цикл"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	published := models.CollectionStatusPublished
	updated, err := svc.Update(ctx, collection.ID, actor, UpdateCollectionInput{Status: &published})
	if err != nil {
		t.Fatalf("публикация: %v", err)
	}
	if updated.PublishedAt == nil {
		t.Fatal("после публикации published_at пуст")
	}
	first := *updated.PublishedAt

	draft := models.CollectionStatusDraft
	if _, err := svc.Update(ctx, collection.ID, actor, UpdateCollectionInput{Status: &draft}); err != nil {
		t.Fatalf("возврат в черновик: %v", err)
	}
	republished, err := svc.Update(ctx, collection.ID, actor, UpdateCollectionInput{Status: &published})
	if err != nil {
		t.Fatalf("повторная публикация: %v", err)
	}
	if republished.PublishedAt == nil || !republished.PublishedAt.Equal(first) {
		t.Errorf("повторная публикация изменила published_at: %v, ожидалось %v",
			republished.PublishedAt, first)
	}
}

func TestCollectionServiceAddArticle(t *testing.T) {
	svc, articleSvc, _, articles := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()
	actor := authorActor(authorID)

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Повесть частями"})
	if err != nil {
		t.Fatalf("Create collection: %v", err)
	}
	first, err := articleSvc.Create(ctx, authorID, CreateArticleInput{Title: "Глава первая", Content: "Начало."})
	if err != nil {
		t.Fatalf("Create article: %v", err)
	}
	second, err := articleSvc.Create(ctx, authorID, CreateArticleInput{Title: "Глава вторая", Content: "Продолжение."})
	if err != nil {
		t.Fatalf("Create article: %v", err)
	}

	if err := svc.AddArticle(ctx, collection.ID, first.ID, authorActor(uuid.New())); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("добавление чужим автором: %v, ожидался ErrForbidden", err)
	}

	if err := svc.AddArticle(ctx, collection.ID, first.ID, actor); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	if err := svc.AddArticle(ctx, collection.ID, second.ID, actor); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	got := articles.items[second.ID]
	if got.CollectionID == nil || *got.CollectionID != collection.ID {
		t.Fatal("статья не привязана к сборнику")
	}
	if got.OrderInCollection == nil || *got.OrderInCollection != 2 {
		t.Errorf("порядок второй статьи = %v, ожидался 2", got.OrderInCollection)
	}

	// Статья другого автора не попадает в сборник.
	foreign, err := articleSvc.Create(ctx, uuid.New(), CreateArticleInput{Title: "Чужая глава", Content: "Не отсюда."})
	if err != nil {
		t.Fatalf("Create article: %v", err)
	}
	if err := svc.AddArticle(ctx, collection.ID, foreign.ID, adminActor()); !apperror.IsValidation(err) {
		t.Errorf("статья чужого автора: %v, ожидалась ошибка валидации", err)
	}

	// Статья, уже состоящая в другом сборнике, не добавляется во второй.
	other, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Параллельный цикл"})
	if err != nil {
		t.Fatalf("Create collection: %v", err)
	}
	err = svc.AddArticle(ctx, other.ID, first.ID, actor)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.ErrCodeConflict {
		t.Errorf("статья из другого сборника: %v, ожидался конфликт", err)
	}
}

func TestCollectionServiceRemoveArticle(t *testing.T) {
	svc, articleSvc, _, articles := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()
	actor := authorActor(authorID)

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Сборник эссе"})
	if err != nil {
		t.Fatalf("Create collection: %v", err)
	}
	article, err := articleSvc.Create(ctx, authorID, CreateArticleInput{Title: "Одинокое эссе", Content: "Текст."})
	if err != nil {
		t.Fatalf("Create article: %v", err)
	}

	if err := svc.RemoveArticle(ctx, collection.ID, article.ID, actor); !apperror.IsValidation(err) {
		t.Errorf("удаление непривязанной статьи: %v, ожидалась ошибка валидации", err)
	}

	if err := svc.AddArticle(ctx, collection.ID, article.ID, actor); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	if err := svc.RemoveArticle(ctx, collection.ID, article.ID, actor); err != nil {
		t.Fatalf("RemoveArticle: %v", err)
	}
	if articles.items[article.ID].CollectionID != nil {
		t.Error("после удаления статья осталась привязанной к сборнику")
	}
}

func TestCollectionServiceDraftVisibility(t *testing.T) {
	svc, _, _, _ := newCollectionService()
	ctx := context.Background()
	authorID := uuid.New()

	collection, err := svc.Create(ctx, authorID, CreateCollectionInput{Title: "Закрытый цикл"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetByID(ctx, collection.ID, nil); !apperror.IsNotFound(err) {
		t.Errorf("черновик сборника анониму: %v, ожидался not found", err)
	}
	if _, err := svc.GetByID(ctx, collection.ID, authorActor(uuid.New())); !apperror.IsNotFound(err) {
		t.Errorf("черновик сборника чужому автору: %v, ожидался not found", err)
	}
	if _, err := svc.GetByID(ctx, collection.ID, authorActor(authorID)); err != nil {
		t.Errorf("черновик сборника автору: %v", err)
	}
}

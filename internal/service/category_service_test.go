package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
)

// fakeCategoryRepo — репозиторий рубрик в памяти для юнит-тестов сервиса.
type fakeCategoryRepo struct {
	nextID   int64
	items    map[int64]*models.Category
	articles map[int64]int
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		items:    make(map[int64]*models.Category),
		articles: make(map[int64]int),
	}
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id int64) (*models.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, apperror.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCategoryRepo) GetBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range r.items {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.ErrCategoryNotFound
}

func (r *fakeCategoryRepo) GetByName(_ context.Context, name string) (*models.Category, error) {
	for _, c := range r.items {
		if strings.EqualFold(c.Name, name) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.ErrCategoryNotFound
}

func (r *fakeCategoryRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, c := range r.items {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCategoryRepo) List(_ context.Context, onlyActive bool) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range r.items {
		if onlyActive && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *fakeCategoryRepo) ListChildren(_ context.Context, parentID int64) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range r.items {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) HasChildren(_ context.Context, id int64) (bool, error) {
	for _, c := range r.items {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCategoryRepo) CountArticles(_ context.Context, id int64) (int, error) {
	return r.articles[id], nil
}

func (r *fakeCategoryRepo) ListArticleCounts(_ context.Context) (map[int64]int, error) {
	out := make(map[int64]int, len(r.articles))
	for id, n := range r.articles {
		out[id] = n
	}
	return out, nil
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *models.Category, orderIndex *int) error {
	r.nextID++
	category.ID = r.nextID
	category.CreatedAt = time.Now()
	if orderIndex != nil {
		category.OrderIndex = *orderIndex
	} else {
		max := -1
		for _, c := range r.items {
			if sameParent(c.ParentID, category.ParentID) && c.OrderIndex > max {
				max = c.OrderIndex
			}
		}
		category.OrderIndex = max + 1
	}
	copied := *category
	r.items[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *models.Category) error {
	if _, ok := r.items[category.ID]; !ok {
		return apperror.ErrCategoryNotFound
	}
	copied := *category
	r.items[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return apperror.ErrCategoryNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCategoryRepo) BulkSetActive(_ context.Context, ids []int64, active bool) (int64, error) {
	var affected int64
	for _, id := range ids {
		if c, ok := r.items[id]; ok {
			c.IsActive = active
			affected++
		}
	}
	return affected, nil
}

func (r *fakeCategoryRepo) Stats(_ context.Context) (*models.CategoryStats, error) {
	stats := &models.CategoryStats{}
	for _, c := range r.items {
		stats.TotalCategories++
		if c.IsActive {
			stats.ActiveCategories++
		}
		if c.ParentID == nil {
			stats.RootCategories++
		}
		if r.articles[c.ID] > 0 {
			stats.CategoriesWithArticles++
		}
	}
	return stats, nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// adminActor — администратор для мутирующих операций над деревом.
func adminActor() *models.User {
	return &models.User{Role: models.RoleAdmin}
}

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, svc *CategoryService, in CreateCategoryInput) *models.Category {
	t.Helper()
	category, err := svc.Create(context.Background(), in, adminActor())
	if err != nil {
		t.Fatalf("Create(%q): %v", in.Name, err)
	}
	return category
}

func TestCategoryServiceMutationsRequireAdmin(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	reader := &models.User{Role: models.RoleReader}
	if _, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Fiction"}, reader); !apperror.IsForbidden(err) {
		t.Fatalf("создание не администратором должно быть отклонено, получено %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Fiction"}, nil); err == nil {
		t.Fatal("создание без авторизации должно быть отклонено")
	}

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	if _, err := svc.Update(context.Background(), fiction.ID, UpdateCategoryInput{}, reader); !apperror.IsForbidden(err) {
		t.Fatalf("обновление не администратором должно быть отклонено, получено %v", err)
	}
	if err := svc.Delete(context.Background(), fiction.ID, reader); !apperror.IsForbidden(err) {
		t.Fatalf("удаление не администратором должно быть отклонено, получено %v", err)
	}
}

func TestCategoryServiceCreateSlugCollision(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	first := mustCreate(t, svc, CreateCategoryInput{Name: "Go!"})
	if first.Slug != "go" {
		t.Fatalf("ожидался slug go, получен %q", first.Slug)
	}

	second := mustCreate(t, svc, CreateCategoryInput{Name: "Go?"})
	if second.Slug != "go-1" {
		t.Fatalf("ожидался slug go-1, получен %q", second.Slug)
	}

	third := mustCreate(t, svc, CreateCategoryInput{Name: "Go..."})
	if third.Slug != "go-2" {
		t.Fatalf("ожидался slug go-2, получен %q", third.Slug)
	}
}

func TestCategoryServiceCreateDuplicateName(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())
	mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})

	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "fiction"}, adminActor())
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.ErrCodeValidation {
		t.Fatalf("ожидался конфликт имени, получено %v", err)
	}
}

func TestCategoryServiceCreateInactiveParent(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	inactive := false
	parent := mustCreate(t, svc, CreateCategoryInput{Name: "Archive", IsActive: &inactive})

	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Fantasy", ParentID: &parent.ID}, adminActor())
	if !apperror.IsValidation(err) {
		t.Fatalf("создание под неактивным родителем должно быть отклонено, получено %v", err)
	}
}

func TestCategoryServiceRenameKeepsOwnSlug(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	poetry := mustCreate(t, svc, CreateCategoryInput{Name: "Poetry"})

	// Новое имя даёт тот же базовый slug: суффикс не нужен.
	updated, err := svc.Update(context.Background(), fiction.ID, UpdateCategoryInput{Name: strPtr("Fiction!")}, adminActor())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "fiction" {
		t.Fatalf("slug должен остаться fiction, получен %q", updated.Slug)
	}

	// Коллизия с чужим slug по-прежнему получает суффикс.
	updated, err = svc.Update(context.Background(), fiction.ID, UpdateCategoryInput{Name: strPtr("Poetry!")}, adminActor())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "poetry-1" {
		t.Fatalf("ожидался poetry-1, получен %q", updated.Slug)
	}
	if got, err := svc.GetBySlug(context.Background(), "poetry"); err != nil || got.ID != poetry.ID {
		t.Fatalf("slug poetry должен остаться за исходной рубрикой: %v", err)
	}
}

func TestCategoryServiceCreateMissingParent(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	missing := int64(999)
	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Fantasy", ParentID: &missing}, adminActor())
	if !apperror.IsValidation(err) {
		t.Fatalf("ожидалась ошибка валидации, получено %v", err)
	}
}

func TestCategoryServiceOrderIndexAppends(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	a := mustCreate(t, svc, CreateCategoryInput{Name: "Alpha"})
	b := mustCreate(t, svc, CreateCategoryInput{Name: "Beta"})
	if a.OrderIndex != 0 || b.OrderIndex != 1 {
		t.Fatalf("ожидались order_index 0 и 1, получены %d и %d", a.OrderIndex, b.OrderIndex)
	}
}

func TestCategoryServiceMoveRejectsCycle(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})
	epic := mustCreate(t, svc, CreateCategoryInput{Name: "Epic", ParentID: &fantasy.ID})

	// Узел под собственного потомка.
	_, err := svc.Update(context.Background(), fiction.ID, UpdateCategoryInput{ParentID: &epic.ID}, adminActor())
	if !apperror.IsValidation(err) {
		t.Fatalf("перенос под потомка должен быть отклонён, получено %v", err)
	}

	// Узел под самого себя.
	_, err = svc.Update(context.Background(), fantasy.ID, UpdateCategoryInput{ParentID: &fantasy.ID}, adminActor())
	if !apperror.IsValidation(err) {
		t.Fatalf("перенос под самого себя должен быть отклонён, получено %v", err)
	}

	// Корректный перенос на новый корень.
	updated, err := svc.Update(context.Background(), epic.ID, UpdateCategoryInput{ParentID: &fiction.ID}, adminActor())
	if err != nil {
		t.Fatalf("корректный перенос: %v", err)
	}
	if updated.ParentID == nil || *updated.ParentID != fiction.ID {
		t.Fatalf("ожидался родитель %d, получен %v", fiction.ID, updated.ParentID)
	}
}

func TestCategoryServiceMoveToRoot(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})

	updated, err := svc.Update(context.Background(), fantasy.ID, UpdateCategoryInput{MoveToRoot: true}, adminActor())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ParentID != nil {
		t.Fatalf("ожидался корневой узел, получен родитель %v", *updated.ParentID)
	}
}

func TestCategoryServiceMove(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	poetry := mustCreate(t, svc, CreateCategoryInput{Name: "Poetry"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})

	moved, err := svc.Move(context.Background(), fantasy.ID, &poetry.ID, adminActor())
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != poetry.ID {
		t.Fatalf("ожидался родитель %d, получен %v", poetry.ID, moved.ParentID)
	}

	moved, err = svc.Move(context.Background(), fantasy.ID, nil, adminActor())
	if err != nil {
		t.Fatalf("Move в корень: %v", err)
	}
	if moved.ParentID != nil {
		t.Fatalf("ожидался корневой узел, получен родитель %v", *moved.ParentID)
	}
}

func TestCategoryServiceDeleteGuards(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(repo)

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})

	// Узел с потомками.
	err := svc.Delete(context.Background(), fiction.ID, adminActor())
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.ErrCodeValidation {
		t.Fatalf("удаление узла с потомками должно быть отклонено, получено %v", err)
	}

	// Узел со статьями.
	repo.articles[fantasy.ID] = 3
	err = svc.Delete(context.Background(), fantasy.ID, adminActor())
	if !errors.As(err, &appErr) || appErr.Code != apperror.ErrCodeValidation {
		t.Fatalf("удаление узла со статьями должно быть отклонено, получено %v", err)
	}

	// Пустой лист удаляется.
	repo.articles[fantasy.ID] = 0
	if err := svc.Delete(context.Background(), fantasy.ID, adminActor()); err != nil {
		t.Fatalf("удаление пустого листа: %v", err)
	}
	if err := svc.Delete(context.Background(), fiction.ID, adminActor()); err != nil {
		t.Fatalf("удаление опустевшего корня: %v", err)
	}
}

func TestCategoryServiceDeleteNotFound(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	err := svc.Delete(context.Background(), 42, adminActor())
	if !apperror.IsNotFound(err) {
		t.Fatalf("ожидалась ошибка not found, получено %v", err)
	}
}

func TestCategoryServiceBulkSetActive(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	a := mustCreate(t, svc, CreateCategoryInput{Name: "Alpha"})
	b := mustCreate(t, svc, CreateCategoryInput{Name: "Beta"})

	affected, err := svc.BulkSetActive(context.Background(), []int64{a.ID, b.ID, 999}, false, adminActor())
	if err != nil {
		t.Fatalf("BulkSetActive: %v", err)
	}
	// Несуществующий ID молча пропускается.
	if affected != 2 {
		t.Fatalf("ожидалось 2 изменённых записи, получено %d", affected)
	}

	affected, err = svc.BulkSetActive(context.Background(), nil, true, adminActor())
	if err != nil || affected != 0 {
		t.Fatalf("пустой список: affected=%d err=%v", affected, err)
	}
}

func TestCategoryServiceGetTree(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})
	mustCreate(t, svc, CreateCategoryInput{Name: "Epic", ParentID: &fantasy.ID})
	mustCreate(t, svc, CreateCategoryInput{Name: "Science"})

	tree, err := svc.GetTree(context.Background(), true)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("ожидалось 2 корня, получено %d", len(tree))
	}

	root := tree[0]
	if root.Name != "Fiction" || root.Level != 0 || root.Path != "Fiction" {
		t.Fatalf("некорректный корень: %+v", root)
	}
	if len(root.Children) != 1 {
		t.Fatalf("у Fiction ожидался один потомок, получено %d", len(root.Children))
	}

	child := root.Children[0]
	if child.Name != "Fantasy" || child.Level != 1 || child.Path != "Fiction > Fantasy" {
		t.Fatalf("некорректный потомок: name=%q level=%d path=%q", child.Name, child.Level, child.Path)
	}
	if len(child.Children) != 1 || child.Children[0].Path != "Fiction > Fantasy > Epic" {
		t.Fatalf("некорректный внук: %+v", child.Children)
	}
}

func TestCategoryServiceGetTreeOrphansBecomeRoots(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(repo)

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})

	// Родитель выключен, потомок активен: потомок поднимается в корни.
	repo.items[fiction.ID].IsActive = false

	tree, err := svc.GetTree(context.Background(), true)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != fantasy.ID || tree[0].Level != 0 {
		t.Fatalf("осиротевший узел должен стать корнем: %+v", tree)
	}
}

func TestCategoryServiceGetPath(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})
	epic := mustCreate(t, svc, CreateCategoryInput{Name: "Epic", ParentID: &fantasy.ID})

	path, err := svc.GetPath(context.Background(), epic.ID)
	if err != nil {
		t.Fatalf("GetPath: %v", err)
	}
	if path != "Fiction > Fantasy > Epic" {
		t.Fatalf("некорректный путь: %q", path)
	}

	path, err = svc.GetPath(context.Background(), fiction.ID)
	if err != nil || path != "Fiction" {
		t.Fatalf("путь корня: %q, %v", path, err)
	}
}

func TestCategoryServiceStatsMaxDepth(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	fiction := mustCreate(t, svc, CreateCategoryInput{Name: "Fiction"})
	fantasy := mustCreate(t, svc, CreateCategoryInput{Name: "Fantasy", ParentID: &fiction.ID})
	mustCreate(t, svc, CreateCategoryInput{Name: "Epic", ParentID: &fantasy.ID})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCategories != 3 || stats.RootCategories != 1 {
		t.Fatalf("некорректная сводка: %+v", stats)
	}
	if stats.MaxDepth != 3 {
		t.Fatalf("ожидалась глубина 3, получено %d", stats.MaxDepth)
	}
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/pkg/apperror"
	"github.com/writervault/backend/internal/repository/common"
	"github.com/writervault/backend/internal/slugify"
	"github.com/writervault/backend/internal/validation"
)

// CategoryRepository описывает зависимости CategoryService от слоя хранилища.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, onlyActive bool) ([]models.Category, error)
	ListChildren(ctx context.Context, parentID int64) ([]models.Category, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	CountArticles(ctx context.Context, id int64) (int, error)
	ListArticleCounts(ctx context.Context) (map[int64]int, error)
	Create(ctx context.Context, category *models.Category, orderIndex *int) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int64) error
	BulkSetActive(ctx context.Context, ids []int64, active bool) (int64, error)
	Stats(ctx context.Context) (*models.CategoryStats, error)
}

// CategoryService управляет деревом рубрик.
//
// Дерево хранится плоско через parent_id; сервис отвечает за инварианты,
// которые не выразить ограничениями базы: ацикличность, существование
// родителя и запрет удаления непустых узлов.
type CategoryService struct {
	repo CategoryRepository
}

// CreateCategoryInput содержит данные новой рубрики.
type CreateCategoryInput struct {
	Name        string
	Description *string
	ParentID    *int64
	Color       *string
	Icon        *string
	OrderIndex  *int
	IsActive    *bool
}

// UpdateCategoryInput содержит частичное обновление рубрики.
// Nil-поле означает «не менять».
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	ParentID    *int64
	MoveToRoot  bool
	Color       *string
	Icon        *string
	OrderIndex  *int
	IsActive    *bool
}

// NewCategoryService создаёт сервис рубрик.
func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// requireAdmin пропускает только администратора: структуру дерева меняет
// исключительно админская роль.
func requireAdmin(actor *models.User) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return apperror.ErrForbidden
	}
	return nil
}

// Create добавляет рубрику. Слаг выводится из имени и при коллизии получает
// числовой суффикс; имя уникально во всём дереве без учёта регистра.
func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput, actor *models.User) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateCategoryName(name); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if in.Color != nil {
		if err := validation.ValidateHexColor(*in.Color); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, apperror.NewValidation("категория с таким названием уже существует")
	} else if !errors.Is(err, apperror.ErrCategoryNotFound) {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, apperror.ErrCategoryNotFound) {
				return nil, apperror.NewValidation("родительская категория не найдена")
			}
			return nil, err
		}
		if !parent.IsActive {
			return nil, apperror.NewValidation("нельзя создать категорию под неактивным родителем")
		}
	}

	slug, err := slugify.Unique(ctx, slugify.Make(name), s.repo.SlugExists)
	if err != nil {
		return nil, err
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		ParentID:    in.ParentID,
		Color:       in.Color,
		Icon:        in.Icon,
		IsActive:    isActive,
	}

	if err := s.repo.Create(ctx, category, in.OrderIndex); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.NewValidation("категория с таким названием уже существует")
		}
		return nil, err
	}
	return category, nil
}

// Update меняет рубрику. Перенос под нового родителя проходит проверку на
// цикл: узел нельзя подвесить под самого себя или под своего потомка.
func (s *CategoryService) Update(ctx context.Context, id int64, in UpdateCategoryInput, actor *models.User) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateCategoryName(name); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		if !strings.EqualFold(name, category.Name) {
			if existing, err := s.repo.GetByName(ctx, name); err == nil && existing.ID != id {
				return nil, apperror.NewValidation("категория с таким названием уже существует")
			} else if err != nil && !errors.Is(err, apperror.ErrCategoryNotFound) {
				return nil, err
			}
			// Собственный slug рубрики не считается коллизией: переименование,
			// дающее тот же базовый slug, не должно получать суффикс.
			takenByOther := func(ctx context.Context, candidate string) (bool, error) {
				existing, err := s.repo.GetBySlug(ctx, candidate)
				if errors.Is(err, apperror.ErrCategoryNotFound) {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				return existing.ID != id, nil
			}
			slug, err := slugify.Unique(ctx, slugify.Make(name), takenByOther)
			if err != nil {
				return nil, err
			}
			category.Slug = slug
		}
		category.Name = name
	}

	switch {
	case in.MoveToRoot:
		category.ParentID = nil
	case in.ParentID != nil:
		if err := s.checkMove(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
		category.ParentID = in.ParentID
	}

	if in.Description != nil {
		category.Description = in.Description
	}
	if in.Color != nil {
		if err := validation.ValidateHexColor(*in.Color); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
		category.Color = in.Color
	}
	if in.Icon != nil {
		category.Icon = in.Icon
	}
	if in.OrderIndex != nil {
		category.OrderIndex = *in.OrderIndex
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.NewValidation("категория с таким названием уже существует")
		}
		return nil, err
	}
	return category, nil
}

// Move переносит рубрику под нового родителя; nil означает корень.
// Дочерние рубрики переезжают вместе с узлом.
func (s *CategoryService) Move(ctx context.Context, id int64, parentID *int64, actor *models.User) (*models.Category, error) {
	if parentID == nil {
		return s.Update(ctx, id, UpdateCategoryInput{MoveToRoot: true}, actor)
	}
	return s.Update(ctx, id, UpdateCategoryInput{ParentID: parentID}, actor)
}

// Delete удаляет рубрику. Узел с дочерними рубриками или привязанными
// статьями удалить нельзя.
func (s *CategoryService) Delete(ctx context.Context, id int64, actor *models.User) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return apperror.NewValidation("нельзя удалить категорию с подкатегориями")
	}

	articles, err := s.repo.CountArticles(ctx, id)
	if err != nil {
		return err
	}
	if articles > 0 {
		return apperror.NewValidation("нельзя удалить категорию с привязанными статьями")
	}

	return s.repo.Delete(ctx, id)
}

// GetByID возвращает рубрику со счётчиком статей.
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountArticles(ctx, id)
	if err != nil {
		return nil, err
	}
	category.ArticleCount = count
	return category, nil
}

// GetBySlug возвращает рубрику по слагу.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountArticles(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	category.ArticleCount = count
	return category, nil
}

// List возвращает плоский список рубрик в каноническом порядке.
func (s *CategoryService) List(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	categories, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.ListArticleCounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].ArticleCount = counts[categories[i].ID]
	}
	return categories, nil
}

// GetTree собирает вложенное дерево рубрик. Узлы с отсутствующим в выборке
// родителем (например, неактивным при onlyActive) поднимаются в корни, чтобы
// ни одна рубрика не пропала из ответа.
func (s *CategoryService) GetTree(ctx context.Context, onlyActive bool) ([]*models.CategoryTreeNode, error) {
	categories, err := s.List(ctx, onlyActive)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*models.CategoryTreeNode, len(categories))
	for i := range categories {
		nodes[categories[i].ID] = &models.CategoryTreeNode{
			Category: categories[i],
			Children: []*models.CategoryTreeNode{},
		}
	}

	roots := []*models.CategoryTreeNode{}
	// Порядок categories канонический, привязка к родителям его сохраняет.
	for i := range categories {
		node := nodes[categories[i].ID]
		if pid := categories[i].ParentID; pid != nil {
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, root := range roots {
		annotate(root, 0, "")
	}
	return roots, nil
}

// GetPath возвращает путь от корня до рубрики через " > ".
func (s *CategoryService) GetPath(ctx context.Context, id int64) (string, error) {
	names := []string{}
	seen := map[int64]bool{}

	currentID := &id
	for currentID != nil {
		if seen[*currentID] {
			// Повреждённые данные: цикл в parent_id.
			break
		}
		seen[*currentID] = true

		category, err := s.repo.GetByID(ctx, *currentID)
		if err != nil {
			return "", err
		}
		names = append(names, category.Name)
		currentID = category.ParentID
	}

	// Имена собраны от листа к корню.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " > "), nil
}

// BulkSetActive массово включает или выключает рубрики. Несуществующие ID
// молча пропускаются; возвращается число реально изменённых строк.
func (s *CategoryService) BulkSetActive(ctx context.Context, ids []int64, active bool, actor *models.User) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.BulkSetActive(ctx, ids, active)
}

// Stats возвращает сводку по дереву, включая максимальную глубину.
func (s *CategoryService) Stats(ctx context.Context) (*models.CategoryStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	tree, err := s.GetTree(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, root := range tree {
		if d := depth(root); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}
	return stats, nil
}

// checkMove проверяет перенос узла под нового родителя: родитель должен
// существовать и не быть самим узлом или его потомком. Обход идёт вверх от
// нового родителя с набором посещённых узлов на случай повреждённых данных.
func (s *CategoryService) checkMove(ctx context.Context, id, newParentID int64) error {
	if newParentID == id {
		return apperror.NewValidation("категория не может быть родителем самой себя")
	}

	visited := map[int64]bool{id: true}
	currentID := &newParentID
	for currentID != nil {
		if visited[*currentID] {
			return apperror.NewValidation("перенос создал бы цикл в дереве категорий")
		}
		visited[*currentID] = true

		parent, err := s.repo.GetByID(ctx, *currentID)
		if err != nil {
			if errors.Is(err, apperror.ErrCategoryNotFound) {
				return apperror.NewValidation("родительская категория не найдена")
			}
			return err
		}
		currentID = parent.ParentID
	}
	return nil
}

// annotate проставляет уровень и путь всем узлам поддерева.
func annotate(node *models.CategoryTreeNode, level int, parentPath string) {
	node.Level = level
	if parentPath == "" {
		node.Path = node.Name
	} else {
		node.Path = parentPath + " > " + node.Name
	}
	for _, child := range node.Children {
		annotate(child, level+1, node.Path)
	}
}

// depth возвращает глубину поддерева в уровнях (одиночный узел — 1).
func depth(node *models.CategoryTreeNode) int {
	max := 0
	for _, child := range node.Children {
		if d := depth(child); d > max {
			max = d
		}
	}
	return max + 1
}

// branches.go — сервис справочника филиалов.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// BranchService — сервис филиалов.
type BranchService struct {
	repo  repository.BranchRepository
	cache *BranchCache
}

// NewBranchService создаёт сервис филиалов.
func NewBranchService(repo repository.BranchRepository, cache *BranchCache) *BranchService {
	return &BranchService{repo: repo, cache: cache}
}

// List возвращает все филиалы, отсортированные по имени (из кэша).
func (s *BranchService) List(ctx context.Context) ([]*model.Branch, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}

	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение филиалов: %w", err)
	}
	s.cache.Set(list)
	return list, nil
}

// Get возвращает филиал по UUID.
func (s *BranchService) Get(ctx context.Context, id string) (*model.Branch, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение филиала: %w", err)
	}
	return b, nil
}

// Create создаёт новый филиал.
func (s *BranchService) Create(ctx context.Context, name, code string) (*model.Branch, error) {
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: требуются name и code", ErrValidation)
	}

	b := &model.Branch{Name: name, Code: code}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: филиал с кодом %s уже существует", ErrConflict, code)
		}
		return nil, fmt.Errorf("создание филиала: %w", err)
	}

	s.cache.Invalidate()
	return b, nil
}

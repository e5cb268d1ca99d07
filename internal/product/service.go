// Package product は商品の一覧・取得・作成・更新・削除のドメインロジックを提供する。
package product

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/validator"
)

// 変更操作の種別。CheckOwnershipのメッセージとメトリクスのラベルに使用する。
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Sanitizer は保存前に商品テキストを無害化するインターフェース。
type Sanitizer interface {
	PlainText(raw string) string
	RichText(raw string) string
}

// Recorder は商品操作の結果を記録するインターフェース。
type Recorder interface {
	RecordProductOperation(op, outcome string)
}

// Service は商品のサービス層。
type Service struct {
	repo      repository.ProductRepository
	sanitizer Sanitizer
	recorder  Recorder
	now       func() time.Time
}

// NewService はServiceを生成する。sanitizerとrecorderはnilでもよい。
func NewService(repo repository.ProductRepository, sanitizer Sanitizer, recorder Recorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// List は検索条件をすべて満たす商品を返す。
func (s *Service) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*model.Product{}
	}
	return products, nil
}

// Get は指定IDの商品を返す。存在しない場合はNotFoundを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.NewProductNotFoundError()
	}
	return p, nil
}

// Create はownerIDを所有者として商品を作成する。
func (s *Service) Create(ctx context.Context, ownerID string, in validator.ProductInput) (*model.Product, error) {
	now := s.now()
	p := &model.Product{
		ID:          uuid.New().String(),
		Name:        s.plain(in.Name),
		Description: s.rich(in.Description),
		Stock:       in.Stock,
		Category:    s.plain(in.Category),
		Price:       in.Price,
		Image:       in.Image,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Name == "" {
		return nil, nameRequiredError()
	}
	if p.Description == "" {
		p.Description = model.DefaultProductDescription
	}
	if p.Category == "" {
		p.Category = model.DefaultProductCategory
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.record(ActionCreate, "error")
		return nil, err
	}

	slog.Info("product created",
		slog.String("product_id", p.ID),
		slog.String("owner_id", ownerID),
	)
	s.record(ActionCreate, "ok")
	return p, nil
}

// LoadOwned は変更対象の商品を取得し、subjectIDが所有者であることを確認する。
// 本文の検証より前に呼び出し、所有者以外による変更は本文に関わらず拒否する。
func (s *Service) LoadOwned(ctx context.Context, subjectID, id, action string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckOwnership(p, subjectID, action); err != nil {
		s.record(action, outcomeOf(err))
		if p != nil {
			slog.Warn("product mutation rejected",
				slog.String("product_id", id),
				slog.String("subject_id", subjectID),
				slog.String("action", action),
			)
		}
		return nil, err
	}
	return p, nil
}

// Update はLoadOwnedで取得した商品にパッチを適用して保存する。
// 空のパッチは何も変更せず現在の商品を返す。
func (s *Service) Update(ctx context.Context, p *model.Product, patch model.ProductPatch) (*model.Product, error) {
	if patch.IsEmpty() {
		s.record(ActionUpdate, "noop")
		return p, nil
	}

	s.sanitizePatch(&patch)
	if patch.Name != nil && *patch.Name == "" {
		return nil, nameRequiredError()
	}

	next := *p
	next.Apply(patch)
	next.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, &next)
	if err != nil {
		s.record(ActionUpdate, "error")
		return nil, err
	}
	if updated == nil {
		s.record(ActionUpdate, "not_found")
		return nil, model.NewProductNotFoundError()
	}

	slog.Info("product updated",
		slog.String("product_id", updated.ID),
	)
	s.record(ActionUpdate, "ok")
	return updated, nil
}

// Delete は所有者確認の後に商品を削除し、削除した商品を返す。
func (s *Service) Delete(ctx context.Context, subjectID, id string) (*model.Product, error) {
	if _, err := s.LoadOwned(ctx, subjectID, id, ActionDelete); err != nil {
		return nil, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.record(ActionDelete, "error")
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	if deleted == nil {
		s.record(ActionDelete, "not_found")
		return nil, model.NewProductNotFoundError()
	}

	slog.Info("product deleted",
		slog.String("product_id", id),
		slog.String("owner_id", subjectID),
	)
	s.record(ActionDelete, "ok")
	return deleted, nil
}

func (s *Service) sanitizePatch(patch *model.ProductPatch) {
	if patch.Name != nil {
		v := s.plain(*patch.Name)
		patch.Name = &v
	}
	if patch.Description != nil {
		v := s.rich(*patch.Description)
		if v == "" {
			v = model.DefaultProductDescription
		}
		patch.Description = &v
	}
	if patch.Category != nil {
		v := s.plain(*patch.Category)
		if v == "" {
			v = model.DefaultProductCategory
		}
		patch.Category = &v
	}
}

func (s *Service) plain(v string) string {
	if s.sanitizer == nil {
		return v
	}
	return s.sanitizer.PlainText(v)
}

func (s *Service) rich(v string) string {
	if s.sanitizer == nil {
		return v
	}
	return s.sanitizer.RichText(v)
}

func (s *Service) record(op, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordProductOperation(op, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case model.IsKind(err, model.KindNotFound):
		return "not_found"
	case model.IsKind(err, model.KindForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func nameRequiredError() error {
	return model.NewValidationError(map[string][]string{
		"name": {"name is required"},
	})
}

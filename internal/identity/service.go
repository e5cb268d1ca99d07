// Package identity はアカウント登録とログインのドメインロジックを提供する。
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/validator"
)

// TokenIssuer は認証トークンの発行インターフェース。
type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
}

// Recorder は登録・ログインの結果を記録するインターフェース。
type Recorder interface {
	RecordRegistration()
	RecordLogin(success bool)
}

// Service はアカウント登録とログインのサービス層。
type Service struct {
	repo     repository.IdentityRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	repo repository.IdentityRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	recorder Recorder,
) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register はアカウントを作成する。
// メールアドレスが登録済みの場合はKindConflictのエラーを返す。
// 事前チェックと一意制約の両方で重複を検出する。
func (s *Service) Register(ctx context.Context, in validator.RegisterInput) (*model.Identity, error) {
	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, model.NewValidationError(map[string][]string{
			"password": {"password must be at most 72 bytes"},
		})
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	identity := &model.Identity{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError()
		}
		return nil, err
	}

	slog.Info("account registered",
		slog.String("user_id", identity.ID),
	)
	if s.recorder != nil {
		s.recorder.RecordRegistration()
	}

	return identity, nil
}

// Login は認証情報を検証し、トークンを発行する。
// アカウント未登録とパスワード不一致は同じエラーを返す。
func (s *Service) Login(ctx context.Context, in validator.LoginInput) (string, error) {
	identity, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return "", fmt.Errorf("failed to look up identity: %w", err)
	}
	if identity == nil || !s.hasher.Compare(identity.PasswordHash, in.Password) {
		s.recordLogin(false)
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(identity.ID, identity.Email)
	if err != nil {
		return "", err
	}

	s.recordLogin(true)
	return token, nil
}

func (s *Service) recordLogin(success bool) {
	if s.recorder != nil {
		s.recorder.RecordLogin(success)
	}
}

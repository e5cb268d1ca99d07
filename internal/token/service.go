// Package token は署名付きの期限付き認証トークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/storefront/internal/model"
)

// DefaultTTL は発行から失効までの既定期間。
const DefaultTTL = time.Hour

// Claims はトークンに埋め込む内容。
// UserIDとSubjectには同じ値を設定する。
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service はHS256でトークンを発行・検証する。
// ストアには一切アクセスしない純粋な暗号・構造チェックのみを行う。
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option はServiceの生成オプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はServiceを生成する。
// secretが空の場合はmodel.ErrMissingSigningSecretを返す。起動時に1回だけ呼び出すこと。
// ttlが0以下の場合はDefaultTTLを使用する。
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, model.ErrMissingSigningSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue はsubjectIDとemailを埋め込んだトークンを発行する。
func (s *Service) Issue(subjectID, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: subjectID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名・構造・有効期限を検証し、認証主体を返す。
// base64urlは厳密にデコードし、末尾の未使用ビットが立ったトークンも拒否する。
// 失敗時はKindAuthのmodel.APIErrorを返す。
func (s *Service) Verify(tokenString string) (model.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.Principal{}, model.NewInvalidTokenError(verifyErrorMessage(err))
	}
	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return model.Principal{}, model.NewInvalidTokenError("invalid token")
	}

	return model.Principal{
		SubjectID: claims.UserID,
		Email:     claims.Email,
	}, nil
}

// verifyErrorMessage はjwtのエラーをクライアント向けのメッセージに変換する。
func verifyErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	default:
		return "invalid token"
	}
}

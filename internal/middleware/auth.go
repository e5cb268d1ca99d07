// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// Verifier はトークンを検証して認証主体を返すインターフェース。
// token.Serviceが実装する。
type Verifier interface {
	Verify(token string) (model.Principal, error)
}

// AuthFailureRecorder は認証失敗の理由を記録するインターフェース。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// RequireBearer はAuthorizationヘッダーのBearerトークンを検証するGuardを返す。
// ヘッダーが無い場合は "token required"、検証失敗時は検証器のメッセージで401とする。
// ストアには問い合わせない。recorderはnilでもよい。
func RequireBearer(verifier Verifier, recorder AuthFailureRecorder) Guard {
	return func(r *http.Request) (*http.Request, error) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			recordAuthFailure(recorder, model.NewTokenRequiredError())
			return nil, model.NewTokenRequiredError()
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			recordAuthFailure(recorder, err)
			return nil, err
		}

		markSubject(r.Context(), principal.SubjectID)
		return r.WithContext(ContextWithPrincipal(r.Context(), principal)), nil
	}
}

// bearerToken は "Bearer <token>" 形式のヘッダー値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func recordAuthFailure(recorder AuthFailureRecorder, err error) {
	if recorder == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		recorder.RecordAuthFailure(apiErr.Message)
		return
	}
	recorder.RecordAuthFailure("internal")
}

// PrincipalFromContext はリクエストコンテキストから認証主体を取得する。
// RequireBearerを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.SubjectID == "" {
		return model.Principal{}, false
	}
	return p, true
}

// ContextWithPrincipal はコンテキストに認証主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

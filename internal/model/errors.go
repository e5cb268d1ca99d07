// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はAPIErrorの分類を表す。HTTPステータスへの変換はこの値で行う。
type ErrorKind string

const (
	// KindValidation は入力値の検証エラー（400）。
	KindValidation ErrorKind = "validation"
	// KindBadRequest はリクエスト形式の不正（400）。
	KindBadRequest ErrorKind = "bad_request"
	// KindConflict は一意制約の衝突（409）。
	KindConflict ErrorKind = "conflict"
	// KindAuth は認証エラー（401）。
	KindAuth ErrorKind = "auth"
	// KindForbidden は所有者以外による変更（403）。
	KindForbidden ErrorKind = "forbidden"
	// KindNotFound はリソース未検出（404）。
	KindNotFound ErrorKind = "not_found"
	// KindRateLimited はレート制限超過（429）。
	KindRateLimited ErrorKind = "rate_limited"
)

// APIError はクライアントへ返すエラーを表す。
// Fieldsが設定されている場合はフィールド単位のエラーとして返す。
type APIError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string][]string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Fields)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidBody        = "INVALID_BODY"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenRequired      = "TOKEN_REQUIRED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// ErrMissingSigningSecret はトークン署名用シークレットが未設定であることを示す。
// 起動時に検出され、プロセスは起動しない。
var ErrMissingSigningSecret = errors.New("JWT_SECRET is not configured")

// NewValidationError はフィールド単位の検証エラーを生成する。
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    ErrCodeValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// NewInvalidBodyError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidBodyError() *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Code:    ErrCodeInvalidBody,
		Message: "invalid request body",
	}
}

// NewInvalidIDError はIDの形式が不正な場合のエラーを生成する。
func NewInvalidIDError() *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Code:    ErrCodeInvalidID,
		Message: "invalid id",
	}
}

// NewEmailTakenError は登録済みメールアドレスでの再登録エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Kind:    KindConflict,
		Code:    ErrCodeEmailTaken,
		Message: "a user with this email already exists",
	}
}

// NewInvalidCredentialsError はログイン失敗のエラーを生成する。
// メールアドレスの存在有無はメッセージから判別できないようにする。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Kind:    KindAuth,
		Code:    ErrCodeInvalidCredentials,
		Message: "unauthorized",
	}
}

// NewTokenRequiredError はAuthorizationヘッダーが無い場合のエラーを生成する。
func NewTokenRequiredError() *APIError {
	return &APIError{
		Kind:    KindAuth,
		Code:    ErrCodeTokenRequired,
		Message: "token required",
	}
}

// NewInvalidTokenError はトークン検証失敗のエラーを生成する。
// reasonは検証器のメッセージをそのまま渡す。
func NewInvalidTokenError(reason string) *APIError {
	return &APIError{
		Kind:    KindAuth,
		Code:    ErrCodeInvalidToken,
		Message: reason,
	}
}

// NewNotOwnerError は所有者以外による変更操作のエラーを生成する。
// actionには "update" や "delete" を渡す。
func NewNotOwnerError(action string) *APIError {
	return &APIError{
		Kind:    KindForbidden,
		Code:    ErrCodeNotOwner,
		Message: fmt.Sprintf("you do not have permission to %s this product", action),
	}
}

// NewProductNotFoundError は商品未検出のエラーを生成する。
func NewProductNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeProductNotFound,
		Message: "product not found",
	}
}

// NewRouteNotFoundError は未定義ルートへのアクセスのエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeRouteNotFound,
		Message: "resource not found",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Kind:    KindRateLimited,
		Code:    ErrCodeRateLimited,
		Message: "too many requests, please try again later",
	}
}

// IsKind はerrがAPIErrorであり、指定の分類であるかを返す。
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

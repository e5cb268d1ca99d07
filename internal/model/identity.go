package model

import "time"

// Identity は登録済みアカウントを表す。
// Emailは小文字に正規化され、ストア全体で一意。
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は検証済みトークンから復元された認証主体。
// ストアには問い合わせず、署名のみを信頼して構築される。
type Principal struct {
	SubjectID string
	Email     string
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/storefront/internal/model"
)

// ErrDuplicate は一意制約違反を表す。呼び出し側で409に変換する。
var ErrDuplicate = errors.New("duplicate key")

// IdentityRepository はアカウントの永続化インターフェース。
type IdentityRepository interface {
	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// Create はアカウントを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, identity *model.Identity) error
}

// ProductRepository は商品の永続化インターフェース。
type ProductRepository interface {
	// List は検索条件をすべて満たす商品を作成日時の昇順で返す。ページングは行わない。
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品の可変項目を更新する。owner_idは更新しない。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, product *model.Product) (*model.Product, error)

	// Delete は指定IDの商品を削除し、削除した商品を返す。
	// 対象が存在しない場合はnilを返す。
	Delete(ctx context.Context, id string) (*model.Product, error)
}

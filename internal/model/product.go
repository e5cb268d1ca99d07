package model

import (
	"strings"
	"time"
)

const (
	// DefaultProductDescription は説明未指定時の既定値。
	DefaultProductDescription = "no description"
	// DefaultProductCategory はカテゴリ未指定時の既定値。
	DefaultProductCategory = "no category"
)

// Product は出品された商品を表す。
// OwnerIDは作成時に一度だけ設定され、以後変更されない。
type Product struct {
	ID          string
	Name        string
	Description string
	Stock       int
	Category    string
	Price       float64
	Image       string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductPatch は部分更新の内容を表す。nilのフィールドは変更しない。
// OwnerIDは含まない。
type ProductPatch struct {
	Name        *string
	Description *string
	Stock       *int
	Category    *string
	Price       *float64
	Image       *string
}

// IsEmpty は変更対象のフィールドが1つも無い場合にtrueを返す。
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Stock == nil &&
		p.Category == nil && p.Price == nil && p.Image == nil
}

// Apply はパッチの内容を商品に反映する。
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
}

// ProductFilter は商品一覧の検索条件を表す。
// 指定された条件はすべてAND結合される。
type ProductFilter struct {
	Name     string   // 部分一致（大文字小文字を区別しない）
	Category string   // 部分一致（大文字小文字を区別しない）
	Stock    *int     // 完全一致
	MinPrice *float64 // price >= MinPrice
	MaxPrice *float64 // price <= MaxPrice
}

// Matches は商品が検索条件をすべて満たす場合にtrueを返す。
// 検索条件の意味論の基準実装で、リポジトリのSQLはこれと同じ結果を返すことを
// 統合テストで確認している。インメモリのリポジトリ実装もこれで絞り込む。
func (f ProductFilter) Matches(p *Product) bool {
	if f.Name != "" && !containsFold(p.Name, f.Name) {
		return false
	}
	if f.Category != "" && !containsFold(p.Category, f.Category) {
		return false
	}
	if f.Stock != nil && p.Stock != *f.Stock {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

package validator

import (
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hitoshi/storefront/internal/model"
)

// ProductInput は検証済みの商品作成リクエスト。
// 未指定の項目には既定値が設定されている。
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

// productFields は作成・更新で共通の検証対象。
type productFields struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
}

func readProductFields(p Payload, fe fieldErrors) productFields {
	var f productFields
	if s, ok := p.stringField("name", fe); ok {
		f.Name = &s
	}
	if s, ok := p.stringField("description", fe); ok {
		f.Description = &s
	}
	if s, ok := p.stringField("category", fe); ok {
		f.Category = &s
	}
	if s, ok := p.stringField("image", fe); ok && s != "" {
		f.Image = &s
	}
	f.Stock = p.intField("stock", fe)
	f.Price = p.floatField("price", fe)
	return f
}

func (f *productFields) rules(nameRule validation.Rule) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&f.Name, nameRule, validation.RuneLength(0, 200).Error("name must be at most 200 characters")),
		validation.Field(&f.Description, validation.RuneLength(0, 2000).Error("description must be at most 2000 characters")),
		validation.Field(&f.Category, validation.RuneLength(0, 100).Error("category must be at most 100 characters")),
		validation.Field(&f.Stock, validation.Min(0).Error("stock must be greater than or equal to 0")),
		validation.Field(&f.Price, validation.Min(0.0).Error("price must be greater than or equal to 0")),
	}
}

// CreateProduct は商品作成リクエストを検証する。
// nameは必須。stockとpriceは数値に変換され0以上であること。
// description、category、stock、priceが未指定の場合は既定値を設定する。
func CreateProduct(p Payload) (ProductInput, error) {
	fe := fieldErrors{}
	f := readProductFields(p, fe)

	err := fe.merge(validation.ValidateStruct(&f,
		f.rules(validation.Required.Error("name is required"))...,
	))
	if err != nil {
		return ProductInput{}, err
	}
	if err := fe.result(); err != nil {
		return ProductInput{}, err
	}

	in := ProductInput{
		Name:        *f.Name,
		Description: model.DefaultProductDescription,
		Category:    model.DefaultProductCategory,
	}
	if f.Description != nil && *f.Description != "" {
		in.Description = *f.Description
	}
	if f.Category != nil && *f.Category != "" {
		in.Category = *f.Category
	}
	if f.Stock != nil {
		in.Stock = *f.Stock
	}
	if f.Price != nil {
		in.Price = *f.Price
	}
	if f.Image != nil {
		in.Image = *f.Image
	}
	return in, nil
}

// UpdateProduct は部分更新リクエストを検証する。
// すべての項目は任意だが、指定された場合は作成時と同じ規則で検証する。
// ownerなど未知のキーは無視される。
func UpdateProduct(p Payload) (model.ProductPatch, error) {
	fe := fieldErrors{}
	f := readProductFields(p, fe)

	err := fe.merge(validation.ValidateStruct(&f,
		f.rules(validation.NilOrNotEmpty.Error("name cannot be blank"))...,
	))
	if err != nil {
		return model.ProductPatch{}, err
	}
	if err := fe.result(); err != nil {
		return model.ProductPatch{}, err
	}

	return model.ProductPatch{
		Name:        f.Name,
		Description: f.Description,
		Stock:       f.Stock,
		Category:    f.Category,
		Price:       f.Price,
		Image:       f.Image,
	}, nil
}

// ProductFilter は商品一覧のクエリパラメータを検索条件に変換する。
// stock、minPrice、maxPriceが数値でない場合は検証エラーを返す。
func ProductFilter(query url.Values) (model.ProductFilter, error) {
	fe := fieldErrors{}
	p := PayloadFromForm(query)

	filter := model.ProductFilter{}
	filter.Name, _ = p.stringField("name", fe)
	filter.Category, _ = p.stringField("category", fe)
	filter.Stock = p.intField("stock", fe)
	filter.MinPrice = p.floatField("minPrice", fe)
	filter.MaxPrice = p.floatField("maxPrice", fe)

	if err := fe.result(); err != nil {
		return model.ProductFilter{}, err
	}
	return filter, nil
}

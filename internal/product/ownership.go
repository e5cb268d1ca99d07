package product

import "github.com/hitoshi/storefront/internal/model"

// CheckOwnership は変更操作の前に商品の存在と所有者を確認する。
// 商品が無ければNotFound、所有者がsubjectIDと異なればForbiddenを返す。
// actionはエラーメッセージに使用する（"update" / "delete"）。
func CheckOwnership(p *model.Product, subjectID, action string) error {
	if p == nil {
		return model.NewProductNotFoundError()
	}
	if p.OwnerID != subjectID {
		return model.NewNotOwnerError(action)
	}
	return nil
}

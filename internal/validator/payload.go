// Package validator はリクエストペイロードの検証と型付きDTOへの変換を提供する。
// 副作用を持たず、同じ入力には常に同じ結果を返す。
package validator

import (
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hitoshi/storefront/internal/model"
)

// Payload は検証前のリクエストボディ。JSONまたはフォームから構築される。
// ハンドラーはPayloadの値を直接参照せず、必ず本パッケージの関数を経由する。
type Payload map[string]any

// PayloadFromForm はフォーム値からPayloadを構築する。各キーの先頭の値のみを使用する。
func PayloadFromForm(values url.Values) Payload {
	p := make(Payload, len(values))
	for key, vs := range values {
		if len(vs) > 0 {
			p[key] = vs[0]
		}
	}
	return p
}

// fieldErrors はフィールド名からエラーメッセージ列へのマップを組み立てる。
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// merge はozzo-validationのエラーを取り込む。内部エラーの場合はそのまま返す。
func (fe fieldErrors) merge(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	for field, e := range errs {
		if e != nil {
			fe.add(field, e.Error())
		}
	}
	return nil
}

// result は蓄積したエラーがあればValidationErrorを返す。
func (fe fieldErrors) result() error {
	if len(fe) == 0 {
		return nil
	}
	return model.NewValidationError(fe)
}

// stringField はキーの値を文字列として取り出し、前後の空白を除去する。
// キーが無いかnullの場合はpresent=falseを返す。
func (p Payload) stringField(key string, fe fieldErrors) (value string, present bool) {
	s, present := p.rawStringField(key, fe)
	return strings.TrimSpace(s), present
}

// intField はキーの値を整数に変換する。数値文字列も受け付ける。
// 空文字列は未指定として扱う。
func (p Payload) intField(key string, fe fieldErrors) *int {
	f := p.floatField(key, fe)
	if f == nil {
		return nil
	}
	if *f != math.Trunc(*f) || *f > math.MaxInt32 || *f < math.MinInt32 {
		fe.add(key, "must be an integer")
		return nil
	}
	i := int(*f)
	return &i
}

// floatField はキーの値を浮動小数点数に変換する。数値文字列も受け付ける。
// 空文字列は未指定として扱う。
func (p Payload) floatField(key string, fe fieldErrors) *float64 {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			fe.add(key, "must be a number")
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fe.add(key, "must be a number")
			return nil
		}
		f = parsed
	default:
		fe.add(key, "must be a number")
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		fe.add(key, "must be a number")
		return nil
	}
	return &f
}

// rawStringField はstringFieldと同様だが空白を除去しない。パスワード用。
func (p Payload) rawStringField(key string, fe fieldErrors) (value string, present bool) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		fe.add(key, "must be a string")
		return "", false
	}
	return s, true
}

package validator

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterInput は検証済みの登録リクエスト。Emailは小文字に正規化済み。
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput は検証済みのログインリクエスト。Emailは小文字に正規化済み。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は登録リクエストを検証する。
// emailは必須かつメールアドレス形式、passwordは6文字以上。
func Register(p Payload) (RegisterInput, error) {
	fe := fieldErrors{}
	email, _ := p.stringField("email", fe)
	password, _ := p.rawStringField("password", fe)

	in := RegisterInput{
		Email:    strings.ToLower(email),
		Password: password,
	}

	err := fe.merge(validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("invalid email format"),
		),
		validation.Field(&in.Password,
			validation.Required.Error("password is required"),
			validation.RuneLength(6, 0).Error("password must be at least 6 characters"),
		),
	))
	if err != nil {
		return RegisterInput{}, err
	}
	if err := fe.result(); err != nil {
		return RegisterInput{}, err
	}
	return in, nil
}

// Login はログインリクエストを検証する。
// emailはメールアドレス形式、passwordは空でないこと。
func Login(p Payload) (LoginInput, error) {
	fe := fieldErrors{}
	email, _ := p.stringField("email", fe)
	password, _ := p.rawStringField("password", fe)

	in := LoginInput{
		Email:    strings.ToLower(email),
		Password: password,
	}

	err := fe.merge(validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("invalid email format"),
		),
		validation.Field(&in.Password,
			validation.Required.Error("password is required"),
		),
	))
	if err != nil {
		return LoginInput{}, err
	}
	if err := fe.result(); err != nil {
		return LoginInput{}, err
	}
	return in, nil
}

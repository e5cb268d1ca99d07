package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/validator"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 1 << 20

// productResponse は商品のAPIレスポンス。
type productResponse struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Image       string    `json:"image,omitempty"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// identityResponse は登録済みアカウントのAPIレスポンス。
// パスワードハッシュを含む（既存クライアントとの互換のため除去しない）。
type identityResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		Category:    p.Category,
		Price:       p.Price,
		Image:       p.Image,
		Owner:       p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []*model.Product) []productResponse {
	results := make([]productResponse, len(products))
	for i, p := range products {
		results[i] = toProductResponse(p)
	}
	return results
}

func toIdentityResponse(i *model.Identity) identityResponse {
	return identityResponse{
		ID:        i.ID,
		Email:     i.Email,
		Password:  i.PasswordHash,
		CreatedAt: i.CreatedAt,
	}
}

// writeJSON は成功レスポンスをEnvelopeで書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	middleware.WriteJSON(w, statusCode, middleware.Envelope{
		Success: true,
		Data:    data,
	})
}

// writeError はエラーを失敗レスポンスとして書き込む。
func writeError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

// decodeJSONPayload はJSONボディをPayloadとして読み込む。
// 空のボディは空のPayloadとして扱い、検証側で必須エラーにする。
func decodeJSONPayload(w http.ResponseWriter, r *http.Request) (validator.Payload, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.UseNumber()

	payload := validator.Payload{}
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return validator.Payload{}, nil
		}
		return nil, model.NewInvalidBodyError()
	}
	return payload, nil
}

// decodePayload はContent-Typeに応じてJSONまたはフォームからPayloadを読み込む。
func decodePayload(w http.ResponseWriter, r *http.Request) (validator.Payload, error) {
	switch mediaType(r) {
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, model.NewInvalidBodyError()
		}
		return validator.PayloadFromForm(r.PostForm), nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		if err := r.ParseMultipartForm(maxJSONBodyBytes); err != nil {
			return nil, model.NewInvalidBodyError()
		}
		return validator.PayloadFromForm(r.MultipartForm.Value), nil
	default:
		return decodeJSONPayload(w, r)
	}
}

func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

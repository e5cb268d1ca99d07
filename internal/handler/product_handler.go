package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/product"
	"github.com/hitoshi/storefront/internal/upload"
	"github.com/hitoshi/storefront/internal/validator"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, ownerID string, in validator.ProductInput) (*model.Product, error)
	// LoadOwned は商品を取得し、subjectIDが所有者であることを確認する。
	LoadOwned(ctx context.Context, subjectID, id, action string) (*model.Product, error)
	Update(ctx context.Context, p *model.Product, patch model.ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, subjectID, id string) (*model.Product, error)
}

// ProductHandler は商品管理のHTTPハンドラー。
type ProductHandler struct {
	service        ProductServiceInterface
	images         upload.Store
	maxUploadBytes int64
}

// NewProductHandler はProductHandlerを生成する。
// imagesがnilの場合、添付画像は受け付けない。
func NewProductHandler(service ProductServiceInterface, images upload.Store, maxUploadBytes int64) *ProductHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &ProductHandler{
		service:        service,
		images:         images,
		maxUploadBytes: maxUploadBytes,
	}
}

// ListProducts は検索条件に一致する商品を返す。ページングは行わない。
// GET /products?name=&category=&stock=&minPrice=&maxPrice=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := validator.ProductFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// GetProduct は商品を1件返す。
// GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// CreateProduct は認証済みの主体を所有者として商品を作成する。
// multipart/form-data の場合は image フィールドのファイルを画像として保存する。
// POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.NewTokenRequiredError())
		return
	}

	if mediaType(r) == "multipart/form-data" {
		h.createFromMultipart(w, r, principal)
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := validator.CreateProduct(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	h.create(w, r, principal, in)
}

func (h *ProductHandler) createFromMultipart(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, model.NewValidationError(map[string][]string{
				"image": {fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes)},
			}))
			return
		}
		writeError(w, model.NewInvalidBodyError())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	payload := validator.PayloadFromForm(r.MultipartForm.Value)
	// 画像はファイルとしてのみ受け付ける
	delete(payload, "image")

	in, err := validator.CreateProduct(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		if h.images == nil {
			writeError(w, model.NewValidationError(map[string][]string{
				"image": {"image upload is not enabled"},
			}))
			return
		}

		f, err := files[0].Open()
		if err != nil {
			writeError(w, fmt.Errorf("failed to open uploaded image: %w", err))
			return
		}
		defer f.Close()

		location, err := h.images.Save(r.Context(), f)
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedType) {
				writeError(w, model.NewValidationError(map[string][]string{
					"image": {"image must be a jpeg, png, gif or webp file"},
				}))
				return
			}
			writeError(w, err)
			return
		}

		slog.Info("product image stored",
			slog.String("location", location),
			slog.String("user_id", principal.SubjectID),
		)
		in.Image = location

		p, err := h.service.Create(r.Context(), principal.SubjectID, in)
		if err != nil {
			h.discardImage(r.Context(), location)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponse(p))
		return
	}

	h.create(w, r, principal, in)
}

// discardImage は商品の作成に失敗した場合に保存済みの画像を削除する。
// クライアントの切断で削除が中断されないよう、キャンセルを引き継がない。
func (h *ProductHandler) discardImage(ctx context.Context, location string) {
	if err := h.images.Delete(context.WithoutCancel(ctx), location); err != nil {
		slog.Warn("failed to discard product image",
			slog.String("location", location),
			slog.String("error", err.Error()),
		)
	}
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request, principal model.Principal, in validator.ProductInput) {
	p, err := h.service.Create(r.Context(), principal.SubjectID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// UpdateProduct は所有者による部分更新を行う。
// 判定順序: ID形式(400) → 存在(404) → 所有者(403) → 入力検証(400) → 更新。
// PATCH /products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.NewTokenRequiredError())
		return
	}

	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current, err := h.service.LoadOwned(r.Context(), principal.SubjectID, id, product.ActionUpdate)
	if err != nil {
		writeError(w, err)
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	patch, err := validator.UpdateProduct(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), current, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(updated))
}

// DeleteProduct は所有者による削除を行い、削除した商品を返す。
// DELETE /products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.NewTokenRequiredError())
		return
	}

	id, err := productID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deleted, err := h.service.Delete(r.Context(), principal.SubjectID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(deleted))
}

// productID はURLパラメータのIDを取り出し、UUID形式であることを確認する。
func productID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", model.NewInvalidIDError()
	}
	return id.String(), nil
}

// Package upload は商品画像の保存を提供する。
// 保存先はローカルディスク（DiskStore）またはS3互換ストレージ（S3Store）。
package upload

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType は画像として受け付けない内容であることを示す。
var ErrUnsupportedType = errors.New("unsupported image type")

// allowedTypes は受け付ける画像のContent-Typeと保存時の拡張子。
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store は画像の保存インターフェース。
// Saveは保存した画像を参照するパスまたはURLを返す。
// DeleteはSaveが返した値を受け取り、保存済みの画像を削除する。存在しない場合はnilを返す。
type Store interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// ErrForeignLocation はDeleteに渡された値がこのストアの保存先を指していないことを示す。
var ErrForeignLocation = errors.New("location does not belong to this store")

// sniff は先頭512バイトから画像形式を判定し、読み出し済みの内容を含むReaderを返す。
func sniff(r io.Reader) (io.Reader, string, string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", "", err
	}
	contentType := http.DetectContentType(head)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, "", "", ErrUnsupportedType
	}
	return br, contentType, ext, nil
}

// objectName は衝突しない保存名を生成する。
func objectName(ext string) string {
	return uuid.New().String() + ext
}

// joinPublic は公開用プレフィックスとファイル名を連結する。
func joinPublic(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

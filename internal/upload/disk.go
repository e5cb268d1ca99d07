package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore は画像をローカルディレクトリに保存する。
// 保存した画像は /uploads 配下で静的配信される。
type DiskStore struct {
	dir    string
	prefix string
}

// NewDiskStore はDiskStoreを生成し、保存先ディレクトリが無ければ作成する。
// prefixは返却するパスの先頭（例: "uploads"）。
func NewDiskStore(dir, prefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, prefix: prefix}, nil
}

// Dir は保存先ディレクトリを返す。静的配信の設定に使用する。
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save は画像を保存し、"<prefix>/<uuid><ext>" 形式のパスを返す。
func (s *DiskStore) Save(ctx context.Context, r io.Reader) (string, error) {
	body, _, ext, err := sniff(r)
	if err != nil {
		return "", err
	}

	name := objectName(ext)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	slog.Debug("image stored on disk",
		slog.String("file", name),
	)
	return joinPublic(s.prefix, name), nil
}

// Delete はSaveが返したパスの画像を削除する。
// 保存先ディレクトリ直下のファイル以外は削除しない。
func (s *DiskStore) Delete(ctx context.Context, location string) error {
	name := location
	if s.prefix != "" {
		var ok bool
		if name, ok = strings.CutPrefix(location, s.prefix+"/"); !ok {
			return ErrForeignLocation
		}
	}
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return ErrForeignLocation
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove upload file: %w", err)
	}

	slog.Debug("image removed from disk",
		slog.String("file", name),
	)
	return nil
}

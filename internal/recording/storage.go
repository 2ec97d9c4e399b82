package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInvalidName はファイル名やディレクトリ名として使えない値であることを表す。
var ErrInvalidName = errors.New("不正な名前です")

// ErrRecordingNotFound は録画ファイルが存在しないことを表す。
var ErrRecordingNotFound = errors.New("録画ファイルが見つかりません")

// Storage は録画ファイルをローカルディスクに保存する。
//
// スペース系の通話は <root>/spaces/<identity>/ に、
// それ以外は <root>/users/<identity>/ に保存する。
type Storage struct {
	// root は保存先のルートディレクトリ。
	root string
}

// NewStorage は新しいStorageを生成し、ルートディレクトリを作成する。
func NewStorage(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("録画ディレクトリの作成に失敗: %w", err)
	}
	return &Storage{root: root}, nil
}

// scopeDir はオーナー種別に対応するサブディレクトリ名を返す。
func scopeDir(callType OwnerType) string {
	if callType.IsGroup() {
		return "spaces"
	}
	return "users"
}

// cleanName はパス区切りを取り除いた名前を返す。空や相対参照は拒否する。
func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// Save は録画ファイルを保存し、保存先のパスを返す。
// ownerは保存先ディレクトリのオーナー（identity、無ければアップロードしたユーザー）。
func (s *Storage) Save(callType OwnerType, owner, fileName string, src io.Reader) (string, error) {
	ownerDir, err := cleanName(owner)
	if err != nil {
		return "", err
	}
	name, err := cleanName(fileName)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, scopeDir(callType), ownerDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("録画ファイルの作成に失敗: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("録画ファイルの書き込みに失敗: %w", err)
	}
	return path, nil
}

// Locate は録画リンクのクレームから録画ファイルのパスを探す。
// identityのディレクトリを優先し、無ければリンクの発行先のディレクトリを探す。
func (s *Storage) Locate(claims *LinkClaims) (string, error) {
	name, err := cleanName(claims.File)
	if err != nil {
		return "", err
	}

	var owners []string
	if claims.Identity != nil && *claims.Identity != "" {
		owners = append(owners, *claims.Identity)
	}
	owners = append(owners, claims.Recipient())

	for _, owner := range owners {
		ownerDir, err := cleanName(owner)
		if err != nil {
			continue
		}
		path := filepath.Join(s.root, scopeDir(claims.CallType), ownerDir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRecordingNotFound, name)
}

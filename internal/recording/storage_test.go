package recording

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "通常のファイル名", input: "rec.webm", want: "rec.webm"},
		{name: "ディレクトリ部分は取り除く", input: "../../etc/passwd", want: "passwd"},
		{name: "空文字は拒否", input: "", wantErr: true},
		{name: "カレントディレクトリは拒否", input: ".", wantErr: true},
		{name: "親ディレクトリは拒否", input: "..", wantErr: true},
		{name: "ルートは拒否", input: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := cleanName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("err = %v, want ErrInvalidName", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if got != tt.want {
				t.Errorf("cleanName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStorage(t *testing.T) {
	t.Parallel()

	t.Run("スペース通話の録画はspaces配下に保存される", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}

		path, err := s.Save(OwnerTypeSpace, "marketing", "rec.webm", strings.NewReader("video"))
		if err != nil {
			t.Fatalf("Saveに失敗: %v", err)
		}
		if want := filepath.Join(s.root, "spaces", "marketing", "rec.webm"); path != want {
			t.Errorf("path = %q, want %q", path, want)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ファイルの読み込みに失敗: %v", err)
		}
		if string(content) != "video" {
			t.Errorf("content = %q, want video", content)
		}
	})

	t.Run("それ以外の録画はusers配下に保存される", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}

		path, err := s.Save(OwnerTypeUser, "u1", "rec.webm", strings.NewReader("video"))
		if err != nil {
			t.Fatalf("Saveに失敗: %v", err)
		}
		if want := filepath.Join(s.root, "users", "u1", "rec.webm"); path != want {
			t.Errorf("path = %q, want %q", path, want)
		}
	})

	t.Run("不正なオーナー名は拒否される", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}

		if _, err := s.Save(OwnerTypeUser, "..", "rec.webm", strings.NewReader("video")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("err = %v, want ErrInvalidName", err)
		}
	})

	t.Run("identityのディレクトリを優先して探す", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}
		saved, err := s.Save(OwnerTypeSpace, "marketing", "rec.webm", strings.NewReader("video"))
		if err != nil {
			t.Fatalf("Saveに失敗: %v", err)
		}

		identity := "marketing"
		claims := &LinkClaims{File: "rec.webm", CallType: OwnerTypeSpace, Identity: &identity}
		claims.Subject = "owner1"

		got, err := s.Locate(claims)
		if err != nil {
			t.Fatalf("Locateに失敗: %v", err)
		}
		if got != saved {
			t.Errorf("Locate = %q, want %q", got, saved)
		}
	})

	t.Run("identityが無ければリンクの発行先のディレクトリを探す", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}
		saved, err := s.Save(OwnerTypeUser, "u2", "rec.webm", strings.NewReader("video"))
		if err != nil {
			t.Fatalf("Saveに失敗: %v", err)
		}

		claims := &LinkClaims{File: "rec.webm", CallType: OwnerTypeUser}
		claims.Subject = "u2"

		got, err := s.Locate(claims)
		if err != nil {
			t.Fatalf("Locateに失敗: %v", err)
		}
		if got != saved {
			t.Errorf("Locate = %q, want %q", got, saved)
		}
	})

	t.Run("存在しない録画はErrRecordingNotFound", func(t *testing.T) {
		t.Parallel()

		s, err := NewStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewStorageに失敗: %v", err)
		}

		claims := &LinkClaims{File: "missing.webm", CallType: OwnerTypeUser}
		claims.Subject = "u1"
		if _, err := s.Locate(claims); !errors.Is(err, ErrRecordingNotFound) {
			t.Errorf("err = %v, want ErrRecordingNotFound", err)
		}
	})
}

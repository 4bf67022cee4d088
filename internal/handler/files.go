package handler

import (
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound はファイルが存在しない、読み込めない、または公開範囲外の場合に返す
var ErrNotFound = errors.New("file not found")

// FileSource はパスを長さ既知のバイトストリームに対応付ける
type FileSource interface {
	// Open は公開ディレクトリからの相対パス name を開く
	Open(name string) (io.ReadCloser, int64, error)
}

// FSSource はafero.Fsを公開ディレクトリとして扱うFileSource
type FSSource struct {
	fs afero.Fs

	// OS上の公開ディレクトリ。設定されている場合はシンボリックリンクを解決して範囲を確認する
	root string
}

// NewFSSource は fs のルートを公開ディレクトリとするFileSourceを作成する
func NewFSSource(fs afero.Fs) *FSSource {
	return &FSSource{fs: fs}
}

// NewDirSource はOS上のディレクトリ root を公開ディレクトリとするFileSourceを作成する
// BasePathFsにより root の外側へのアクセスは拒否される
func NewDirSource(root string) *FSSource {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	s := NewFSSource(afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root)))
	s.root = root
	return s
}

// Open はファイルを開き、サイズとともに返す
// ディレクトリや公開範囲外のパスは ErrNotFound になる
func (s *FSSource) Open(name string) (io.ReadCloser, int64, error) {
	clean, ok := resolve(name)
	if !ok {
		return nil, 0, ErrNotFound
	}
	if s.root != "" && !s.withinRoot(clean) {
		return nil, 0, ErrNotFound
	}

	f, err := s.fs.Open(clean)
	if err != nil {
		return nil, 0, ErrNotFound
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() || !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, ErrNotFound
	}

	return f, info.Size(), nil
}

// resolve は "/" で始まる相対パスを正規化する
// 正規化後に公開ディレクトリの外を指す場合は false を返す
func resolve(name string) (string, bool) {
	if !strings.HasPrefix(name, "/") || strings.ContainsRune(name, 0) {
		return "", false
	}
	// ".." を含むパスは正規化前の段階で拒否する
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", false
		}
	}
	clean := path.Clean(name)
	if clean == "/" {
		return "", false
	}
	return clean, true
}

// withinRoot はシンボリックリンクを解決した実体が公開ディレクトリ内にあるかを返す
// BasePathFsはリンク先までは検査しないため、ここで実パス同士を比較する
func (s *FSSource) withinRoot(name string) bool {
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return false
	}
	target, err := filepath.EvalSymlinks(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

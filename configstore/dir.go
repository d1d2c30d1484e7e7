package configstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	aif "github.com/goliatone/go-aif"
)

var dirExtensions = []string{"", ".json", ".yaml", ".yml"}

// Dir reads documents laid out as <root>/<kind>/<name>[.json|.yaml|.yml],
// e.g. config/aim/AIM_TEMP_LIMIT.json.
type Dir struct {
	fsys fs.FS
	root string
}

func NewDir(root string) *Dir {
	return &Dir{fsys: os.DirFS(root), root: root}
}

// NewFS reads the same layout from any fs.FS, such as an embed.FS.
func NewFS(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

func (d *Dir) Get(ctx context.Context, kind aif.Kind, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, aif.CloneError(aif.ErrInvalidIdentity, "document name must not contain path separators", nil, map[string]any{
			"kind": kind.String(),
			"name": name,
		})
	}
	base := filepath.ToSlash(filepath.Join(kind.String(), name))
	for _, ext := range dirExtensions {
		data, err := fs.ReadFile(d.fsys, base+ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, aif.CloneError(aif.ErrDocumentNotFound, "read metadata document", err, map[string]any{
				"kind": kind.String(),
				"name": name,
				"path": base + ext,
			})
		}
	}
	return nil, notFound(kind, name, nil)
}

// Root returns the directory the store reads from, empty for NewFS.
func (d *Dir) Root() string {
	return d.root
}

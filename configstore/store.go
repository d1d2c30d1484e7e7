// Package configstore fetches AIF, AIW and AIM metadata documents.
package configstore

import (
	"context"
	"strings"

	aif "github.com/goliatone/go-aif"
)

// Store returns the raw metadata document for a component.
// Missing or empty documents return an aif.ErrDocumentNotFound error.
type Store interface {
	Get(ctx context.Context, kind aif.Kind, name string) ([]byte, error)
}

func GetAIF(ctx context.Context, s Store, name string) ([]byte, error) {
	return get(ctx, s, aif.KindAIF, name)
}

func GetAIW(ctx context.Context, s Store, name string) ([]byte, error) {
	return get(ctx, s, aif.KindAIW, name)
}

func GetAIM(ctx context.Context, s Store, name string) ([]byte, error) {
	return get(ctx, s, aif.KindAIM, name)
}

func get(ctx context.Context, s Store, kind aif.Kind, name string) ([]byte, error) {
	if s == nil {
		return nil, aif.CloneError(aif.ErrDocumentNotFound, "config store is nil", nil, map[string]any{
			"kind": kind.String(),
			"name": name,
		})
	}
	if strings.TrimSpace(name) == "" {
		return nil, aif.CloneError(aif.ErrInvalidIdentity, "document name is required", nil, map[string]any{
			"kind": kind.String(),
		})
	}
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := s.Get(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, notFound(kind, name, nil)
	}
	return data, nil
}

func notFound(kind aif.Kind, name string, source error) error {
	return aif.CloneError(aif.ErrDocumentNotFound, "", source, map[string]any{
		"kind": kind.String(),
		"name": name,
	})
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return aif.HasCode(err, aif.ErrCodeDocumentNotFound)
}

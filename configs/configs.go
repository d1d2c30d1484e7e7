// Package configs embeds the reference CAE-REV metadata documents laid out
// for configstore.Dir.
package configs

import (
	"embed"
	"io/fs"
)

//go:embed aif aiw aim
var embeddedFS embed.FS

// FS returns the embedded documents rooted at the kind directories.
func FS() fs.FS {
	return embeddedFS
}

// Package migrations embeds the SQL schema applied by db.RunMigrations.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed *.up.sql
var FS embed.FS

// Source returns dir as a filesystem, or the embedded schema when dir is empty.
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}

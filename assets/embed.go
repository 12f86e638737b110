package assets

import (
	"embed"
	"io/fs"
)

//go:embed default_layout.txt sql/*.sql
var FS embed.FS

// DefaultLayout returns the embedded Black starting layout.
func DefaultLayout() ([]byte, error) {
	return FS.ReadFile("default_layout.txt")
}

// Migrations returns the embedded SQL migrations rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

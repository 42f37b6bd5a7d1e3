//go:build !dev

package dashboard

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var clientBuild embed.FS

// distFS is the compiled web client, rooted so that index.html sits at its top.
var distFS = mustSub(clientBuild, "dist")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("dashboard: client build missing from binary: " + err.Error())
	}
	return sub
}

//go:build dev

package dashboard

import "io/fs"

// distFS is nil in dev mode so the Vite dev server serves the client.
var distFS fs.FS

package appfs

import "embed"

// FS holds the non-Go assets shipped with the binary, notably the
// database migrations.
//
//go:embed migrations
var FS embed.FS

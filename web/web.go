// Package web embeds the static browser UI served by the relay. The UI is
// presentation only: it talks to the relay exclusively through /api/chat
// and renders the frame stream client-side.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// Static returns the embedded UI rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		// The static directory is embedded at compile time.
		panic(err)
	}
	return sub
}

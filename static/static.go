// Package static holds the web UI, embedded into the binary.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed files
var files embed.FS

// FileSystemHandler serves the UI, preferring a local static/files/ dir
// when present (eases development), falling back to the embedded copy.
func FileSystemHandler() http.Handler {
	if info, err := os.Stat("static/files/"); err == nil && info.IsDir() {
		return http.FileServer(http.Dir("static/files/"))
	}
	sub, err := fs.Sub(files, "files")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// ReadAll returns the named embedded file, preferring the local copy.
func ReadAll(name string) ([]byte, error) {
	if b, err := os.ReadFile("static/files/" + name); err == nil {
		return b, nil
	}
	return files.ReadFile("files/" + name)
}

// Package configs embeds the manifests shipped with the binary, so a
// node can start without any file mounted.
package configs

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed *.yaml
var embeddedManifests embed.FS

// Names returns the list of embedded manifest filenames.
func Names() []string {
	entries, err := fs.Glob(embeddedManifests, "*.yaml")
	if err != nil {
		return nil
	}
	sort.Strings(entries)
	return entries
}

// Load returns the embedded manifest by filename.
func Load(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("embedded manifest name is empty")
	}
	data, err := fs.ReadFile(embeddedManifests, name)
	if err != nil {
		return nil, fmt.Errorf("read embedded manifest %q: %w", name, err)
	}
	return data, nil
}

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

// textureName is the bundle file name of texture i.
func textureName(i int, f texture.Format) string {
	return fmt.Sprintf("texture_%d%s", i, f.Ext())
}

// encodeTexture returns t encoded as f. PNG textures are passed through.
func encodeTexture(t mesh.Texture, f texture.Format) ([]byte, error) {
	if f == texture.PNG && t.IsPNG() {
		return t.Data, nil
	}
	img, err := texture.Decode(t)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := texture.Encode(&buf, img, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// saveTextures writes every decodable texture of m into dir and returns the
// file names written. Undecodable textures are skipped and reported through
// skipped; an IO failure aborts.
func saveTextures(dir string, m *mesh.Mesh, f texture.Format, skipped func(i int, err error)) ([]string, error) {
	var names []string
	for i, t := range m.Textures() {
		data, err := encodeTexture(t, f)
		if err != nil {
			if skipped != nil {
				skipped(i, err)
			}
			continue
		}
		name := textureName(i, f)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

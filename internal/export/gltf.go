package export

import (
	"bytes"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

// gltfImage is the base-colour texture of a glTF document: embedded data
// for GLB, an external file for GLTF bundles.
type gltfImage struct {
	Data []byte
	URI  string
}

// buildDocument converts m into a single-node glTF scene. Meshes with face
// UVs are flattened because glTF attributes are per vertex.
func buildDocument(m *mesh.Mesh, name string, img *gltfImage) (*gltf.Document, error) {
	src := *m
	if len(m.FaceUVs) > 0 {
		src = *m.Flatten()
	}
	if len(src.Normals) != len(src.Vertices) {
		src.ComputeNormals()
	}

	indices := make([]uint32, 0, len(src.Faces)*3)
	for _, f := range src.Faces {
		indices = append(indices, f[0], f[1], f[2])
	}

	doc := gltf.NewDocument()
	attrs := gltf.PrimitiveAttributes{
		gltf.POSITION: modeler.WritePosition(doc, src.Vertices),
		gltf.NORMAL:   modeler.WriteNormal(doc, src.Normals),
	}
	if len(src.UVs) == len(src.Vertices) && len(src.UVs) > 0 {
		// glTF puts the texture origin at the top left.
		uvs := make([][2]float32, len(src.UVs))
		for i, uv := range src.UVs {
			uvs[i] = [2]float32{uv[0], 1 - uv[1]}
		}
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, uvs)
	}
	indexAccessor := modeler.WriteIndices(doc, indices)

	pbr := &gltf.PBRMetallicRoughness{
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	if img != nil {
		var source int
		if img.Data != nil {
			var err error
			source, err = modeler.WriteImage(doc, "texture_0", texture.PNG.MIME(), bytes.NewReader(img.Data))
			if err != nil {
				return nil, err
			}
		} else {
			doc.Images = append(doc.Images, &gltf.Image{Name: "texture_0", URI: img.URI})
			source = len(doc.Images) - 1
		}
		doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(source)})
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: len(doc.Textures) - 1}
	}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:                 materialName(m),
		DoubleSided:          true,
		PBRMetallicRoughness: pbr,
	})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indexAccessor),
			Attributes: attrs,
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc, nil
}

// writeGLB writes a binary glTF with the first texture embedded as PNG.
func writeGLB(w io.Writer, m *mesh.Mesh, name string, texPNG []byte) error {
	var img *gltfImage
	if texPNG != nil {
		img = &gltfImage{Data: texPNG}
	}
	doc, err := buildDocument(m, name, img)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

// saveGLTF writes path (.gltf) plus its .bin buffer next to it. textureURI
// names an already written image file relative to path, or is empty.
func saveGLTF(path, binName string, m *mesh.Mesh, name, textureURI string) error {
	var img *gltfImage
	if textureURI != "" {
		img = &gltfImage{URI: textureURI}
	}
	doc, err := buildDocument(m, name, img)
	if err != nil {
		return err
	}
	doc.Buffers[0].URI = binName
	return gltf.Save(doc, path)
}

package export

import (
	"encoding/xml"
	"io"

	"github.com/klauspost/compress/zip"

	"cxbin-converter/internal/mesh"
)

const (
	threeMFModelPath = "3D/3dmodel.model"

	threeMFContentTypes = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
 <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
 <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>
`
	threeMFRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
 <Relationship Target="/3D/3dmodel.model" Id="rel0" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>
`
)

type tmfModel struct {
	XMLName  xml.Name  `xml:"http://schemas.microsoft.com/3dmanufacturing/core/2015/02 model"`
	Unit     string    `xml:"unit,attr"`
	Metadata []tmfMeta `xml:"metadata"`
	Object   tmfObject `xml:"resources>object"`
	Items    []tmfItem `xml:"build>item"`
}

type tmfMeta struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type tmfObject struct {
	ID        int         `xml:"id,attr"`
	Type      string      `xml:"type,attr"`
	Name      string      `xml:"name,attr,omitempty"`
	Vertices  []tmfVertex `xml:"mesh>vertices>vertex"`
	Triangles []tmfTri    `xml:"mesh>triangles>triangle"`
}

type tmfVertex struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
}

type tmfTri struct {
	V1 uint32 `xml:"v1,attr"`
	V2 uint32 `xml:"v2,attr"`
	V3 uint32 `xml:"v3,attr"`
}

type tmfItem struct {
	ObjectID int `xml:"objectid,attr"`
}

func threeMFModel(m *mesh.Mesh, name string) tmfModel {
	obj := tmfObject{
		ID:        1,
		Type:      "model",
		Name:      name,
		Vertices:  make([]tmfVertex, len(m.Vertices)),
		Triangles: make([]tmfTri, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		obj.Vertices[i] = tmfVertex{X: ftoa(v[0]), Y: ftoa(v[1]), Z: ftoa(v[2])}
	}
	for i, f := range m.Faces {
		obj.Triangles[i] = tmfTri{V1: f[0], V2: f[1], V3: f[2]}
	}
	return tmfModel{
		Unit:     "millimeter",
		Metadata: []tmfMeta{{Name: "Title", Value: name}, {Name: "Application", Value: "cxconv"}},
		Object:   obj,
		Items:    []tmfItem{{ObjectID: 1}},
	}
}

// write3MF writes an OPC package holding one mesh object.
func write3MF(w io.Writer, m *mesh.Mesh, name string) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		path string
		body func(io.Writer) error
	}{
		{"[Content_Types].xml", writeString(threeMFContentTypes)},
		{"_rels/.rels", writeString(threeMFRels)},
		{threeMFModelPath, func(w io.Writer) error { return writeXML(w, threeMFModel(m, name)) }},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.path)
		if err != nil {
			zw.Close()
			return err
		}
		if err := p.body(fw); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

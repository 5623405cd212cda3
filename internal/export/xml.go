package export

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"cxbin-converter/internal/mesh"
)

func writeXML(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func ftoa(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// joinVec3 flattens vectors into a space separated list.
func joinVec3(vs [][3]float32) string {
	b := make([]byte, 0, len(vs)*3*10)
	for i, v := range vs {
		for k := 0; k < 3; k++ {
			if i > 0 || k > 0 {
				b = append(b, ' ')
			}
			b = strconv.AppendFloat(b, float64(v[k]), 'g', -1, 32)
		}
	}
	return string(b)
}

func joinVec2(vs [][2]float32) string {
	b := make([]byte, 0, len(vs)*2*10)
	for i, v := range vs {
		for k := 0; k < 2; k++ {
			if i > 0 || k > 0 {
				b = append(b, ' ')
			}
			b = strconv.AppendFloat(b, float64(v[k]), 'g', -1, 32)
		}
	}
	return string(b)
}

// joinFaces writes triangles as index lists, with sep after each face.
func joinFaces(fs [][3]uint32, sep string) string {
	b := make([]byte, 0, len(fs)*3*6)
	for i, f := range fs {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendUint(b, uint64(f[0]), 10)
		b = append(b, ' ')
		b = strconv.AppendUint(b, uint64(f[1]), 10)
		b = append(b, ' ')
		b = strconv.AppendUint(b, uint64(f[2]), 10)
		b = append(b, sep...)
	}
	return string(b)
}

// AMF

type amfDoc struct {
	XMLName  xml.Name    `xml:"amf"`
	Unit     string      `xml:"unit,attr"`
	Version  string      `xml:"version,attr"`
	Metadata []amfMeta   `xml:"metadata"`
	Objects  []amfObject `xml:"object"`
}

type amfMeta struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type amfObject struct {
	ID       int       `xml:"id,attr"`
	Vertices []amfVert `xml:"mesh>vertices>vertex"`
	Volume   []amfTri  `xml:"mesh>volume>triangle"`
}

type amfVert struct {
	X string `xml:"coordinates>x"`
	Y string `xml:"coordinates>y"`
	Z string `xml:"coordinates>z"`
}

type amfTri struct {
	V1 uint32 `xml:"v1"`
	V2 uint32 `xml:"v2"`
	V3 uint32 `xml:"v3"`
}

func writeAMF(w io.Writer, m *mesh.Mesh, name string) error {
	obj := amfObject{
		Vertices: make([]amfVert, len(m.Vertices)),
		Volume:   make([]amfTri, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		obj.Vertices[i] = amfVert{X: ftoa(v[0]), Y: ftoa(v[1]), Z: ftoa(v[2])}
	}
	for i, f := range m.Faces {
		obj.Volume[i] = amfTri{V1: f[0], V2: f[1], V3: f[2]}
	}
	return writeXML(w, amfDoc{
		Unit:     "millimeter",
		Version:  "1.1",
		Metadata: []amfMeta{{Type: "name", Value: name}},
		Objects:  []amfObject{obj},
	})
}

// X3D

type x3dDoc struct {
	XMLName xml.Name `xml:"X3D"`
	Profile string   `xml:"profile,attr"`
	Version string   `xml:"version,attr"`
	Shape   x3dShape `xml:"Scene>Shape"`
}

type x3dShape struct {
	DEF      string      `xml:"DEF,attr"`
	Material x3dMaterial `xml:"Appearance>Material"`
	FaceSet  x3dFaceSet  `xml:"IndexedFaceSet"`
}

type x3dMaterial struct {
	DiffuseColor string `xml:"diffuseColor,attr"`
}

type x3dFaceSet struct {
	Solid         string     `xml:"solid,attr"`
	CoordIndex    string     `xml:"coordIndex,attr"`
	TexCoordIndex string     `xml:"texCoordIndex,attr,omitempty"`
	Coordinate    x3dPoints  `xml:"Coordinate"`
	TexCoord      *x3dPoints `xml:"TextureCoordinate,omitempty"`
}

type x3dPoints struct {
	Point string `xml:"point,attr"`
}

func writeX3D(w io.Writer, m *mesh.Mesh, name string) error {
	fs := x3dFaceSet{
		Solid:      "false",
		CoordIndex: joinFaces(m.Faces, " -1"),
		Coordinate: x3dPoints{Point: joinVec3(m.Vertices)},
	}
	switch {
	case len(m.FaceUVs) == len(m.Faces) && len(m.UVs) > 0:
		fs.TexCoord = &x3dPoints{Point: joinVec2(m.UVs)}
		fs.TexCoordIndex = joinFaces(m.FaceUVs, " -1")
	case m.HasPerVertexUVs():
		fs.TexCoord = &x3dPoints{Point: joinVec2(m.UVs)}
	}
	return writeXML(w, x3dDoc{
		Profile: "Interchange",
		Version: "3.3",
		Shape: x3dShape{
			DEF:      vrmlName(name),
			Material: x3dMaterial{DiffuseColor: "0.8 0.8 0.8"},
			FaceSet:  fs,
		},
	})
}

// COLLADA

type daeDoc struct {
	XMLName     xml.Name       `xml:"http://www.collada.org/2005/11/COLLADASchema COLLADA"`
	Version     string         `xml:"version,attr"`
	Asset       daeAsset       `xml:"asset"`
	Geometries  []daeGeometry  `xml:"library_geometries>geometry"`
	VisualScene daeVisualScene `xml:"library_visual_scenes>visual_scene"`
	Scene       daeInstance    `xml:"scene>instance_visual_scene"`
}

type daeAsset struct {
	Created  string  `xml:"created"`
	Modified string  `xml:"modified"`
	Unit     daeUnit `xml:"unit"`
	UpAxis   string  `xml:"up_axis"`
}

type daeUnit struct {
	Name  string `xml:"name,attr"`
	Meter string `xml:"meter,attr"`
}

type daeGeometry struct {
	ID        string       `xml:"id,attr"`
	Name      string       `xml:"name,attr"`
	Sources   []daeSource  `xml:"mesh>source"`
	Vertices  daeVertices  `xml:"mesh>vertices"`
	Triangles daeTriangles `xml:"mesh>triangles"`
}

type daeSource struct {
	ID       string        `xml:"id,attr"`
	Array    daeFloatArray `xml:"float_array"`
	Accessor daeAccessor   `xml:"technique_common>accessor"`
}

type daeFloatArray struct {
	ID     string `xml:"id,attr"`
	Count  int    `xml:"count,attr"`
	Values string `xml:",chardata"`
}

type daeAccessor struct {
	Source string     `xml:"source,attr"`
	Count  int        `xml:"count,attr"`
	Stride int        `xml:"stride,attr"`
	Params []daeParam `xml:"param"`
}

type daeParam struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type daeVertices struct {
	ID    string   `xml:"id,attr"`
	Input daeInput `xml:"input"`
}

type daeInput struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   *int   `xml:"offset,attr,omitempty"`
}

type daeTriangles struct {
	Count  int        `xml:"count,attr"`
	Inputs []daeInput `xml:"input"`
	P      string     `xml:"p"`
}

type daeVisualScene struct {
	ID   string  `xml:"id,attr"`
	Node daeNode `xml:"node"`
}

type daeNode struct {
	ID       string      `xml:"id,attr"`
	Name     string      `xml:"name,attr"`
	Geometry daeInstance `xml:"instance_geometry"`
}

type daeInstance struct {
	URL string `xml:"url,attr"`
}

func daeXYZ() []daeParam {
	return []daeParam{{"X", "float"}, {"Y", "float"}, {"Z", "float"}}
}

func writeDAE(w io.Writer, m *mesh.Mesh, name string) error {
	zero := 0
	now := time.Now().UTC().Format(time.RFC3339)
	geom := daeGeometry{
		ID:   "mesh-geometry",
		Name: name,
		Sources: []daeSource{{
			ID:    "mesh-positions",
			Array: daeFloatArray{ID: "mesh-positions-array", Count: len(m.Vertices) * 3, Values: joinVec3(m.Vertices)},
			Accessor: daeAccessor{
				Source: "#mesh-positions-array", Count: len(m.Vertices), Stride: 3, Params: daeXYZ(),
			},
		}},
		Vertices: daeVertices{
			ID:    "mesh-vertices",
			Input: daeInput{Semantic: "POSITION", Source: "#mesh-positions"},
		},
		Triangles: daeTriangles{
			Count:  len(m.Faces),
			Inputs: []daeInput{{Semantic: "VERTEX", Source: "#mesh-vertices", Offset: &zero}},
			P:      joinFaces(m.Faces, ""),
		},
	}
	return writeXML(w, daeDoc{
		Version: "1.4.1",
		Asset: daeAsset{
			Created:  now,
			Modified: now,
			Unit:     daeUnit{Name: "millimeter", Meter: "0.001"},
			UpAxis:   "Z_UP",
		},
		Geometries: []daeGeometry{geom},
		VisualScene: daeVisualScene{
			ID:   "scene",
			Node: daeNode{ID: "node", Name: name, Geometry: daeInstance{URL: "#mesh-geometry"}},
		},
		Scene: daeInstance{URL: "#scene"},
	})
}

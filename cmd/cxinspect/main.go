package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"cxbin-converter/internal/cxbin"
	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

// Face directions in the order they are printed.
var directions = []string{"-Y(front)", "+Y(back)", "+X(right)", "-X(left)", "+Z(top)", "-Z(bottom)"}

func main() {
	var showUVs bool
	cmd := &cobra.Command{
		Use:           "cxinspect <file.cxbin>...",
		Short:         "Dump the layout, geometry and textures of CXBIN containers",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := inspect(cmd.OutOrStdout(), path, showUVs); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be read", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showUVs, "uvs", false, "print the UV corners of every side face")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(w io.Writer, path string, showUVs bool) error {
	m, info, err := cxbin.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  Head code: %d, version: %d, legacy: %v\n", info.HeadCode, info.Version, info.Legacy)
	fmt.Fprintf(w, "  Compressed: %d bytes, decompressed: %d bytes\n", info.CompressedBytes, info.UncompressedBytes)
	fmt.Fprintf(w, "  Vertices: %d, faces: %d, uvs: %d, face uvs: %d\n", len(m.Vertices), len(m.Faces), len(m.UVs), len(m.FaceUVs))

	lo, hi := m.Bounds()
	fmt.Fprintf(w, "  BBox: X[%.1f, %.1f] Y[%.1f, %.1f] Z[%.1f, %.1f]\n", lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	fmt.Fprintf(w, "  Size: %.1f x %.1f x %.1f (extent %.1f)\n", hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2], m.Extent())
	fmt.Fprintf(w, "  Surface area: %.1f sq units\n", m.SurfaceArea())

	dirs, areaByDir := classifyFaces(m)
	fmt.Fprintln(w, "  --- Surface area by direction ---")
	for _, d := range directions {
		fmt.Fprintf(w, "  %s: %.1f sq units\n", d, areaByDir[d])
	}

	if m.Material != nil {
		fmt.Fprintf(w, "  Material: %q, blocks: %d, texture ids: %v\n", m.Material.Name, len(m.Material.Blocks), m.TextureIDs)
	}
	for i, t := range m.Textures() {
		line := fmt.Sprintf("  Texture[%d]: %s, %d bytes", i, t.Encoding, len(t.Data))
		if img, err := texture.Decode(t); err != nil {
			line += fmt.Sprintf(", undecodable: %v", err)
		} else {
			b := img.Bounds()
			line += fmt.Sprintf(", %dx%d", b.Dx(), b.Dy())
		}
		fmt.Fprintln(w, line)
	}

	if showUVs && len(m.FaceUVs) > 0 {
		fmt.Fprintln(w, "  --- UV mapping of side faces ---")
		for fi, tri := range m.FaceUVs {
			d := dirs[fi]
			if d == "+Z(top)" || d == "-Z(bottom)" {
				continue
			}
			fmt.Fprintf(w, "  tri[%2d] %s UV: (%.3f,%.3f) (%.3f,%.3f) (%.3f,%.3f)\n", fi, d,
				m.UVs[tri[0]][0], m.UVs[tri[0]][1],
				m.UVs[tri[1]][0], m.UVs[tri[1]][1],
				m.UVs[tri[2]][0], m.UVs[tri[2]][1])
		}
	}
	return nil
}

// classifyFaces labels each face with the axis its normal is closest to and
// sums the face areas per label.
func classifyFaces(m *mesh.Mesh) ([]string, map[string]float64) {
	dirs := make([]string, len(m.Faces))
	areaByDir := make(map[string]float64, len(directions))
	for i, f := range m.Faces {
		v0, v1, v2 := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		e1x := float64(v1[0] - v0[0])
		e1y := float64(v1[1] - v0[1])
		e1z := float64(v1[2] - v0[2])
		e2x := float64(v2[0] - v0[0])
		e2y := float64(v2[1] - v0[1])
		e2z := float64(v2[2] - v0[2])
		cx := e1y*e2z - e1z*e2y
		cy := e1z*e2x - e1x*e2z
		cz := e1x*e2y - e1y*e2x
		area := 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)

		acx, acy, acz := math.Abs(cx), math.Abs(cy), math.Abs(cz)
		var dir string
		switch {
		case acx >= acy && acx >= acz:
			dir = "-X(left)"
			if cx > 0 {
				dir = "+X(right)"
			}
		case acy >= acz:
			dir = "-Y(front)"
			if cy > 0 {
				dir = "+Y(back)"
			}
		default:
			dir = "-Z(bottom)"
			if cz > 0 {
				dir = "+Z(top)"
			}
		}
		dirs[i] = dir
		areaByDir[dir] += area
	}
	return dirs, areaByDir
}

package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

// Options configures a Dispatcher.
type Options struct {
	// TextureFormat is the encoding of OBJ bundle textures. glTF always
	// uses PNG.
	TextureFormat texture.Format
	Logger        *log.Logger
}

// Result lists what an export wrote.
type Result struct {
	Plan        Plan
	Outputs     []string // the file, the bundle directory, or the zip
	BundleFiles []string // files written into the bundle directory
	Bytes       int64    // total size of Outputs
}

// Dispatcher routes meshes to the writer of the requested format.
type Dispatcher struct {
	table Table
	opts  Options
	log   *log.Logger
}

// NewDispatcher returns a dispatcher over table.
func NewDispatcher(table Table, opts Options) *Dispatcher {
	l := opts.Logger
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Dispatcher{table: table, opts: opts, log: l}
}

// Table returns the dispatcher's format table.
func (d *Dispatcher) Table() Table { return d.table }

// Export writes m as req.Spec. Single-file formats produce one file; multi-file
// formats produce a bundle directory, optionally zipped.
func (d *Dispatcher) Export(ctx context.Context, m *mesh.Mesh, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if _, ok := d.table.Lookup(req.Spec.Format); !ok {
		return Result{}, &UnsupportedFormatError{Name: req.Spec.Name, Valid: d.table.Names()}
	}
	plan := PlanOutputs(req)
	if req.Spec.Multi {
		return d.exportBundle(ctx, m, req, plan)
	}
	return d.exportFile(m, req, plan)
}

func (d *Dispatcher) exportFile(m *mesh.Mesh, req Request, plan Plan) (Result, error) {
	res := Result{Plan: plan}
	if err := os.MkdirAll(filepath.Dir(plan.File), 0o755); err != nil {
		return res, err
	}

	var glbTexture []byte
	if req.Spec.Format == GLB && len(m.Textures()) > 0 {
		tex, terr := encodeTexture(m.Textures()[0], texture.PNG)
		if terr != nil {
			d.log.Warn("texture not embedded", "file", plan.File, "err", terr)
		}
		glbTexture = tex
	}

	if err := writeFile(plan.File, func(w io.Writer) error {
		switch req.Spec.Format {
		case STL:
			return writeSTL(w, m, plan.BaseName)
		case PLY:
			return writePLY(w, m)
		case OFF:
			return writeOFF(w, m)
		case GLB:
			return writeGLB(w, m, plan.BaseName, glbTexture)
		case ThreeMF:
			return write3MF(w, m, plan.BaseName)
		case AMF:
			return writeAMF(w, m, plan.BaseName)
		case X3D:
			return writeX3D(w, m, plan.BaseName)
		case VRML:
			return writeVRML(w, m, plan.BaseName)
		case DAE:
			return writeDAE(w, m, plan.BaseName)
		}
		return fmt.Errorf("export: %s is not a single-file format", req.Spec.Name)
	}); err != nil {
		return res, err
	}

	res.Outputs = []string{plan.File}
	res.Bytes = fileSize(plan.File)
	d.log.Debug("exported", "format", req.Spec.Name, "file", plan.File, "bytes", res.Bytes)
	return res, nil
}

func (d *Dispatcher) exportBundle(ctx context.Context, m *mesh.Mesh, req Request, plan Plan) (res Result, err error) {
	res.Plan = plan
	if err := os.MkdirAll(plan.Bundle, 0o755); err != nil {
		return res, err
	}
	if req.Zip == ZipOnly {
		defer func() {
			if rerr := os.RemoveAll(plan.Bundle); rerr != nil && err == nil {
				err = rerr
			}
		}()
	}

	texFormat := d.opts.TextureFormat
	if req.Spec.Format == GLTF {
		texFormat = texture.PNG
	}
	textures, err := saveTextures(plan.Bundle, m, texFormat, func(i int, err error) {
		d.log.Warn("texture skipped", "bundle", plan.Bundle, "index", i, "err", err)
	})
	if err != nil {
		return res, err
	}

	var names []string
	switch req.Spec.Format {
	case OBJ:
		names, err = d.writeOBJBundle(m, plan, textures)
	case GLTF:
		names, err = d.writeGLTFBundle(m, plan, textures)
	default:
		err = fmt.Errorf("export: %s is not a multi-file format", req.Spec.Name)
	}
	if err != nil {
		return res, err
	}
	for _, n := range append(names, textures...) {
		res.BundleFiles = append(res.BundleFiles, filepath.Join(plan.Bundle, n))
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if req.Zip == ZipNone {
		res.Outputs = []string{plan.Bundle}
		for _, f := range res.BundleFiles {
			res.Bytes += fileSize(f)
		}
		return res, nil
	}

	if err := zipDir(plan.Bundle, plan.Zip); err != nil {
		return res, err
	}
	res.Outputs = []string{plan.Zip}
	res.Bytes = fileSize(plan.Zip)
	d.log.Debug("zipped", "bundle", plan.Bundle, "zip", plan.Zip, "keep", req.Zip == ZipKeep)
	return res, nil
}

func (d *Dispatcher) writeOBJBundle(m *mesh.Mesh, plan Plan, textures []string) ([]string, error) {
	objName := plan.BaseName + ".obj"
	mtlName := plan.BaseName + ".mtl"
	material := materialName(m)

	var diffuse string
	if len(textures) > 0 {
		diffuse = textures[0]
	}
	if err := writeFile(filepath.Join(plan.Bundle, mtlName), func(w io.Writer) error {
		return writeMTL(w, material, diffuse)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(filepath.Join(plan.Bundle, objName), func(w io.Writer) error {
		return writeOBJ(w, m, mtlName, material)
	}); err != nil {
		return nil, err
	}
	return []string{objName, mtlName}, nil
}

func (d *Dispatcher) writeGLTFBundle(m *mesh.Mesh, plan Plan, textures []string) ([]string, error) {
	gltfName := plan.BaseName + ".gltf"
	binName := plan.BaseName + ".bin"

	var uri string
	if len(textures) > 0 {
		uri = textures[0]
	}
	if err := saveGLTF(filepath.Join(plan.Bundle, gltfName), binName, m, plan.BaseName, uri); err != nil {
		return nil, err
	}
	return []string{gltfName, binName}, nil
}

// writeFile creates path, runs fn on a buffered writer and closes the file on
// every path. A failed write leaves no partial file behind.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

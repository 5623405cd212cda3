package viewmatrix

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cxbin-converter/internal/mathutil"
)

// Default is the camera used when no view is named.
const Default = "iso"

// presets map camera names to view matrices. Every preset starts from
// slicer space (Z up).
var presets = map[string]mathutil.Mat3{
	"iso":    mathutil.PreviewView,
	"front":  mathutil.ZUpToYUp,
	"back":   mathutil.Mat3Mul(mathutil.RotY(mathutil.Deg2Rad(180)), mathutil.ZUpToYUp),
	"left":   mathutil.Mat3Mul(mathutil.RotY(mathutil.Deg2Rad(90)), mathutil.ZUpToYUp),
	"right":  mathutil.Mat3Mul(mathutil.RotY(mathutil.Deg2Rad(-90)), mathutil.ZUpToYUp),
	"top":    mathutil.Mat3Identity(),
	"bottom": mathutil.RotX(mathutil.Deg2Rad(180)),
}

// Names lists the camera presets.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromAngles builds a view from Euler angles in degrees, applied X then Y
// then Z, on top of the front camera.
func FromAngles(rotX, rotY, rotZ float64) mathutil.Mat3 {
	rx := mathutil.Deg2Rad(rotX)
	ry := mathutil.Deg2Rad(rotY)
	rz := mathutil.Deg2Rad(rotZ)
	rot := mathutil.Mat3Mul(mathutil.Mat3Mul(mathutil.RotZ(rz), mathutil.RotY(ry)), mathutil.RotX(rx))
	return mathutil.Mat3Mul(rot, mathutil.ZUpToYUp)
}

// Parse resolves a camera spec: a preset name, or three comma-separated
// angles in degrees ("25,-35,0"). An empty spec is Default.
func Parse(spec string) (mathutil.Mat3, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		spec = Default
	}
	if m, ok := presets[spec]; ok {
		return m, nil
	}

	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return mathutil.Mat3{}, fmt.Errorf("viewmatrix: unknown view %q (want one of %s, or rx,ry,rz in degrees)",
			spec, strings.Join(Names(), ", "))
	}
	var deg [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mathutil.Mat3{}, fmt.Errorf("viewmatrix: bad angle %q in view %q", p, spec)
		}
		deg[i] = v
	}
	return FromAngles(deg[0], deg[1], deg[2]), nil
}

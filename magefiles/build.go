//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Binaries built by every target.
var commands = []string{"cxconv", "cxinspect"}

// Platforms covered by Build.All.
var platforms = []struct{ goos, goarch string }{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"windows", "amd64"},
	{"darwin", "amd64"},
	{"darwin", "arm64"},
}

// Builds standalone binaries for the host into dist/.
func (Build) Local() error {
	for _, name := range commands {
		out := filepath.Join("dist", name+exeSuffix(os.Getenv("GOOS")))
		if _, err := executeCmd("go", withArgs("build", "-trimpath", "-o", out, "./cmd/"+name), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds standalone binaries for linux, windows and darwin into dist/<os>_<arch>/.
func (Build) All() error {
	for _, p := range platforms {
		if err := crossBuild(p.goos, p.goarch); err != nil {
			return err
		}
	}
	return nil
}

// Builds linux binaries.
func (Build) Linux() error { return crossBuild("linux", "amd64") }

// Builds windows binaries.
func (Build) Windows() error { return crossBuild("windows", "amd64") }

// Builds darwin binaries for Apple silicon.
func (Build) Darwin() error { return crossBuild("darwin", "arm64") }

func crossBuild(goos, goarch string) error {
	fmt.Printf("Building %s/%s...\n", goos, goarch)
	for _, name := range commands {
		out := filepath.Join("dist", goos+"_"+goarch, name+exeSuffix(goos))
		_, err := executeCmd("go",
			withArgs("build", "-trimpath", "-ldflags", "-s -w", "-o", out, "./cmd/"+name),
			withEnv("GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func exeSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}

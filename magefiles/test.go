//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Fuzzes the container reader for 30 seconds.
func (Test) Fuzz() error {
	_, err := executeCmd("go", withArgs("test", "-run", "^$", "-fuzz", "FuzzDecode", "-fuzztime", "30s", "./internal/cxbin"), withStream())
	return err
}

// Tidies modules and vets the tree.
func Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

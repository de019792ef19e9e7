// cmd/screengen writes JSON screen descriptions for the models of a CUE
// package, one file per model, so view layers can be built without running
// the server.
//
// Usage:
//
//	screengen [models-dir] [out-dir]
//
// The defaults are ./models and ./gen/screens relative to the project root.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/cueschema"
	"github.com/matthewbaird/screens/internal/screenfile"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("screengen: ")

	root := findProjectRoot()
	modelsDir := filepath.Join(root, "models")
	outDir := filepath.Join(root, "gen", "screens")
	if len(os.Args) > 1 {
		modelsDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		outDir = os.Args[2]
	}

	models, err := cueschema.LoadDir(modelsDir)
	if err != nil {
		log.Fatalf("loading models: %v", err)
	}
	registry := meta.NewRegistry()
	if err := cueschema.Register(registry, models...); err != nil {
		log.Fatalf("registering models: %v", err)
	}

	files, err := screenfile.Describe(registry)
	if err != nil {
		log.Fatal(err)
	}
	paths, err := screenfile.Write(outDir, files)
	if err != nil {
		log.Fatal(err)
	}
	for i, path := range paths {
		fmt.Printf("  wrote %s (%d properties)\n", path, len(files[i].Properties))
	}
	fmt.Printf("screengen: %d screens generated\n", len(files))
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatal("cannot find project root (no go.mod found)")
		}
		dir = parent
	}
}

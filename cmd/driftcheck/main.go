// cmd/driftcheck validates that the generated screen descriptions match the
// models they were generated from.
//
// Phase 1 loads the CUE models, which catches constraint violations and
// unknown association targets. Phase 2 resolves every screen and compares
// the result with the files screengen wrote.
//
// Usage:
//
//	driftcheck [models-dir] [screens-dir]
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
	log.SetPrefix("driftcheck: ")

	projectRoot := findProjectRoot()
	modelsDir := filepath.Join(projectRoot, "models")
	screensDir := filepath.Join(projectRoot, "gen", "screens")
	if len(os.Args) > 1 {
		modelsDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		screensDir = os.Args[2]
	}

	fmt.Printf("Phase 1: Validating models in %s...\n", modelsDir)
	models, err := cueschema.LoadDir(modelsDir)
	if err != nil {
		log.Fatalf("CUE validation failed: %v", err)
	}
	registry := meta.NewRegistry()
	if err := cueschema.Register(registry, models...); err != nil {
		log.Fatalf("registering models: %v", err)
	}
	files, err := screenfile.Describe(registry)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  %d models validate.\n", len(files))

	fmt.Printf("Phase 2: Checking %s freshness...\n", screensDir)
	drift, err := screenfile.Check(screensDir, files)
	if err != nil {
		log.Fatal(err)
	}
	if len(drift) > 0 {
		for _, d := range drift {
			fmt.Printf("  %s\n", d)
		}
		log.Fatalf("%d screen files out of date, run screengen", len(drift))
	}
	fmt.Println("  Generated screens are clean.")

	fmt.Println("\ndriftcheck: OK, no drift detected")
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

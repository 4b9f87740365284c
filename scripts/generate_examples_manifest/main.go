package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// ExampleEntry describes one examples/<name>/main.go demo program.
type ExampleEntry struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description"`
}

func main() {
	examplesDir := flag.String("dir", "examples", "directory containing one subdirectory per example")
	outPath := flag.String("out", "examples_index.json", "output JSON file")
	flag.Parse()

	dirs, err := ioutil.ReadDir(*examplesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", *examplesDir, err)
		os.Exit(2)
	}

	fset := token.NewFileSet()
	var entries []ExampleEntry

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		mainPath := filepath.Join(*examplesDir, d.Name(), "main.go")
		src, err := ioutil.ReadFile(mainPath)
		if err != nil {
			continue // not every subdirectory need be a runnable example
		}

		file, err := parser.ParseFile(fset, mainPath, src, parser.ParseComments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error parsing %s: %v\n", mainPath, err)
			os.Exit(2)
		}

		entries = append(entries, ExampleEntry{
			Name:        d.Name(),
			File:        mainPath,
			Description: packageDoc(file),
		})
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding json: %v\n", err)
		os.Exit(2)
	}

	if err := ioutil.WriteFile(*outPath, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing output: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("wrote %d example entries to %s\n", len(entries), *outPath)
}

// packageDoc returns the leading "package main" doc comment, flattened to a
// single space-joined line, or "" if the file carries none.
func packageDoc(file *ast.File) string {
	if file.Doc == nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(file.Doc.Text()), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, " ")
}

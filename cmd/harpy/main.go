// Command harpy is the thin CLI around the compiler and VM packages:
// "compile" lexes/parses/analyzes/generates a source file into a
// bytecode image, "run" loads an image and executes it. All the real
// work lives in internal/compiler and internal/vm; main.go is argument
// parsing, file I/O, and diagnostic rendering only, per spec.md §1's
// scoping of the CLI as an external collaborator.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/compiler"
	"github.com/Aiffelowy/harpy-sub000/internal/config"
	"github.com/Aiffelowy/harpy-sub000/internal/diagnostics"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/vm"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: harpy compile <src> [-o out.hpy]")
	fmt.Fprintln(os.Stderr, "       harpy run [-v|--disasm] <image.hpy>")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "compile":
		err = runCompile(os.Args[2:])
	case "run":
		err = runRun(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "harpy:", err)
		os.Exit(1)
	}
}

func runCompile(args []string) error {
	if len(args) < 1 {
		usage()
		return fmt.Errorf("compile: missing source file")
	}

	srcPath := args[0]
	outPath := ""
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "-o" {
			outPath = args[i+1]
		}
	}
	if outPath == "" {
		outPath = defaultImagePath(srcPath)
	}

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("compile: reading %s: %w", srcPath, err)
	}
	file := source.NewFile(srcPath, string(content))

	img, cerrs := compiler.Compile(file)
	if len(cerrs) > 0 {
		for _, ce := range cerrs {
			diagnostics.Render(os.Stderr, file, ce.Diagnostic())
		}
		return fmt.Errorf("compile: %d error(s)", len(cerrs))
	}

	data, err := bytecode.Write(img)
	if err != nil {
		return fmt.Errorf("compile: assembling image: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("compile: writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(data))
	return nil
}

func runRun(args []string) error {
	var imgPath string
	disasm := false
	for _, a := range args {
		switch a {
		case "-v", "--disasm":
			disasm = true
		default:
			imgPath = a
		}
	}
	if imgPath == "" {
		usage()
		return fmt.Errorf("run: missing image file")
	}

	data, err := os.ReadFile(imgPath)
	if err != nil {
		return fmt.Errorf("run: reading %s: %w", imgPath, err)
	}
	img, err := bytecode.Read(data)
	if err != nil {
		return fmt.Errorf("run: parsing image: %w", err)
	}

	if disasm {
		fmt.Fprint(os.Stdout, bytecode.Disassemble(img))
	}

	cfg, err := config.Load("harpy.yaml")
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	machine := vm.New(img, cfg.VM, os.Stdout)
	if _, err := machine.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func defaultImagePath(srcPath string) string {
	base := filepath.Base(srcPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".hpy"
}

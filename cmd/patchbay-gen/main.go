package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/patchbay/compiler"
	"github.com/vsariola/patchbay/version"
)

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	list := flag.Bool("l", false, "Do not write files; just list files that would change instead.")
	help := flag.Bool("h", false, "Show help.")
	dump := flag.Bool("dump", false, "Do not generate code; print the parsed node descriptions as YAML instead.")
	tmplDir := flag.String("t", "", "Use the templates in this directory instead of the standard templates.")
	outDir := flag.String("o", "", "Directory where to write the generated files. By default, the directory of the description file.")
	pkg := flag.String("p", "", "Name of the generated package. By default, the name of the output directory.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	filename := flag.Arg(0)
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read file %v: %v\n", filename, err)
		os.Exit(1)
	}
	specs, err := compiler.ParseNodeSpecs(inputBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", filename, err)
		os.Exit(1)
	}
	if *dump {
		out, err := yaml.Marshal(specs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not marshal the node descriptions: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}
	dir := *outDir
	if dir == "" {
		dir = filepath.Dir(filename)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not resolve output directory: %v\n", err)
		os.Exit(1)
	}
	if *pkg == "" {
		*pkg = filepath.Base(dir)
	}
	var comp *compiler.Compiler
	if *tmplDir != "" {
		comp, err = compiler.NewFromTemplates(*pkg, *tmplDir)
	} else {
		comp, err = compiler.New(*pkg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating compiler: %v\n", err)
		os.Exit(1)
	}
	files, err := comp.NodeTypes(filepath.Base(filename), specs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generating code failed: %v\n", err)
		os.Exit(1)
	}
	output := func(name string, contents []byte) error {
		f := filepath.Join(dir, name)
		original, err := os.ReadFile(f)
		if err == nil {
			if bytes.Equal(original, contents) {
				return nil // no need to update
			}
			if !*list && *safe {
				return fmt.Errorf("file %v would be overwritten by generator", f)
			}
		}
		if *list {
			fmt.Println(f)
			return nil
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		return nil
	}
	retval := 0
	for name, code := range files {
		if err := output(name, code); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Patchbay node type generator: writes Go node types from a .yml description file.\nUsage: %s [flags] nodes.yml\n", os.Args[0])
	flag.PrintDefaults()
}

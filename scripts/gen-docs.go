//go:build ignore

// gen-docs writes docs/job-reference.md, the reference of the batch job file
// format, from the struct definitions in apis/v1.
package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"
)

type field struct {
	yamlKey     string
	typ         string
	required    bool
	template    bool
	constraints []string
	description string
}

type typeInfo struct {
	name       string
	doc        string
	structType *ast.StructType
}

// Documented structs, in the order they appear in the reference.
var targetStructs = []string{
	"ShrinkJob",
	"Metadata",
	"ShrinkJobSpec",
	"Book",
	"ShrinkOptions",
	"S3Spec",
	"S3Credentials",
}

func main() {
	root, err := findProjectRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding project root: %v\n", err)
		os.Exit(1)
	}

	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedName,
		Dir:  root,
	}

	pkgs, err := packages.Load(cfg, "./apis/v1")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading package: %v\n", err)
		os.Exit(1)
	}

	typeSpecs := make(map[string]*typeInfo)
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			fmt.Fprintf(os.Stderr, "Package error: %v\n", e)
			os.Exit(1)
		}
		for _, file := range pkg.Syntax {
			collectTypeSpecs(file, typeSpecs)
		}
	}

	var sb strings.Builder
	sb.WriteString("# Job file reference\n\n")
	sb.WriteString("Generated by `go run scripts/gen-docs.go`. Do not edit.\n")
	sb.WriteString("Fields marked *template* accept `${VAR}` references to `JOB_NAME`,\n")
	sb.WriteString("`JOB_DATE_ISO8601`, `JOB_DATE_RFC3339` and variables passed with `--allowed-env`.\n")

	for _, name := range targetStructs {
		info, ok := typeSpecs[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Warning: struct %s not found\n", name)
			continue
		}
		writeStruct(&sb, info)
	}

	outputPath := filepath.Join(root, "docs", "job-reference.md")
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outputPath)
}

func writeStruct(sb *strings.Builder, info *typeInfo) {
	fmt.Fprintf(sb, "\n## %s\n\n", info.name)
	if info.doc != "" {
		fmt.Fprintf(sb, "%s\n\n", strings.ReplaceAll(info.doc, "\n", " "))
	}
	sb.WriteString("| Key | Type | Required | Notes |\n|---|---|---|---|\n")

	for _, f := range extractFields(info) {
		notes := f.description
		if len(f.constraints) > 0 {
			notes = strings.TrimSpace(notes + " Constraints: `" + strings.Join(f.constraints, ", ") + "`.")
		}
		if f.template {
			notes = strings.TrimSpace(notes + " *template*")
		}
		required := ""
		if f.required {
			required = "yes"
		}
		fmt.Fprintf(sb, "| `%s` | `%s` | %s | %s |\n", f.yamlKey, f.typ, required, notes)
	}
}

func collectTypeSpecs(file *ast.File, typeSpecs map[string]*typeInfo) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}

			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			var doc string
			if genDecl.Doc != nil && len(genDecl.Specs) == 1 {
				doc = cleanDocComment(genDecl.Doc.Text())
			} else if typeSpec.Doc != nil {
				doc = cleanDocComment(typeSpec.Doc.Text())
			}

			typeSpecs[typeSpec.Name.Name] = &typeInfo{
				name:       typeSpec.Name.Name,
				doc:        doc,
				structType: structType,
			}
		}
	}
}

func extractFields(info *typeInfo) []field {
	var fields []field
	for _, astField := range info.structType.Fields.List {
		if len(astField.Names) == 0 || !ast.IsExported(astField.Names[0].Name) {
			continue
		}

		f := field{
			yamlKey: astField.Names[0].Name,
			typ:     typeName(astField.Type),
		}

		if astField.Tag != nil {
			tag := reflect.StructTag(strings.Trim(astField.Tag.Value, "`"))
			if key := strings.Split(tag.Get("yaml"), ",")[0]; key != "" {
				f.yamlKey = key
			}
			f.required, f.constraints = parseValidateTag(tag)
			_, f.template = tag.Lookup("template")
		}

		if astField.Doc != nil {
			f.description = strings.ReplaceAll(cleanDocComment(astField.Doc.Text()), "\n", " ")
		} else if astField.Comment != nil {
			f.description = cleanDocComment(astField.Comment.Text())
		}

		fields = append(fields, f)
	}
	return fields
}

func parseValidateTag(tag reflect.StructTag) (required bool, constraints []string) {
	for _, part := range strings.Split(tag.Get("validate"), ",") {
		switch {
		case part == "":
		case part == "required":
			required = true
		case part == "omitempty" || part == "dive":
		default:
			constraints = append(constraints, part)
		}
	}
	return required, constraints
}

func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return typeName(t.X)
	case *ast.ArrayType:
		return "[]" + typeName(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", typeName(t.Key), typeName(t.Value))
	case *ast.SelectorExpr:
		return t.Sel.Name
	default:
		return "any"
	}
}

func cleanDocComment(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

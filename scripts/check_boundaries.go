package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "ballotbox"

// applicationThirdParty lists the libraries use cases may call directly.
// Everything else belongs behind a port.
var applicationThirdParty = []string{
	"golang.org/x/crypto",
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
}

// layerRule constrains what one layer of a context may import. A nil allow
// function means any import outside the forbidden set passes.
type layerRule struct {
	name      string
	forbidden func(importPath string) bool
	allow     func(importPath string, contextPrefix string) bool
}

var layerRules = map[string]layerRule{
	"domain": {
		name:      "domain",
		forbidden: runtimeImport,
		allow: func(importPath string, contextPrefix string) bool {
			return isStdlib(importPath) || hasPrefix(importPath, contextPrefix+"/domain")
		},
	},
	"ports": {
		name:      "ports",
		forbidden: runtimeImport,
		allow: func(importPath string, contextPrefix string) bool {
			return isStdlib(importPath) ||
				hasPrefix(importPath, contextPrefix+"/domain") ||
				hasPrefix(importPath, modulePath+"/contracts")
		},
	},
	"application": {
		name:      "application",
		forbidden: runtimeImport,
		allow: func(importPath string, contextPrefix string) bool {
			if isStdlib(importPath) || isAllowed(importPath, applicationThirdParty) {
				return true
			}
			return isAllowed(importPath, []string{
				contextPrefix + "/application",
				contextPrefix + "/domain",
				contextPrefix + "/ports",
				modulePath + "/contracts",
			})
		},
	},
}

func main() {
	root := flag.String("root", "contexts", "directory holding bounded contexts")
	flag.Parse()

	violations := collectViolations(*root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}
	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Println("-", v)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, relErr := filepath.Rel(filepath.Dir(root), path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}
		contextPrefix := strings.Join([]string{modulePath, "contexts", parts[1], parts[2]}, "/")
		violations = append(violations, checkFile(path, filepath.ToSlash(rel), parts[3], contextPrefix)...)
		return nil
	})

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	return violations
}

func checkFile(path string, display string, layer string, contextPrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: display, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		for _, rule := range checkImport(layer, importPath, contextPrefix) {
			violations = append(violations, violation{File: display, Line: line, Import: importPath, Rule: rule})
		}
	}
	return violations
}

// checkImport returns every rule importPath breaks when imported from the
// given layer of the context rooted at contextPrefix.
func checkImport(layer string, importPath string, contextPrefix string) []string {
	var broken []string
	if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, contextPrefix) {
		broken = append(broken, "cross-module imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return broken
	}
	if strings.Contains(importPath, "/adapters/") {
		broken = append(broken, rule.name+" must not import adapters")
	}
	if rule.forbidden(importPath) {
		broken = append(broken, rule.name+" must not import runtime infrastructure")
	}
	if !rule.allow(importPath, contextPrefix) {
		broken = append(broken, rule.name+" import is outside explicit allowlist")
	}
	return broken
}

func runtimeImport(importPath string) bool {
	return strings.HasPrefix(importPath, modulePath+"/internal/")
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

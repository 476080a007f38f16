package workspace

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Layout derives, from the source text, the path of the source file inside
// the workspace and the entry point the run phase should invoke.
type Layout func(source string) (relPath, entry string)

// FixedFile places the source at name regardless of its contents.
func FixedFile(name string) Layout {
	entry := strings.TrimSuffix(name, filepath.Ext(name))
	return func(string) (string, string) {
		return name, entry
	}
}

// DefaultJavaClass is used when no type declaration can be found.
const DefaultJavaClass = "Main"

var (
	javaBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	javaLineComment  = regexp.MustCompile(`(?m)//.*$`)
	javaPackageDecl  = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z_$][\w$]*(?:\s*\.\s*[A-Za-z_$][\w$]*)*)\s*;`)
	javaPublicType   = regexp.MustCompile(
		`(?m)^\s*public\s+(?:(?:abstract|final|sealed|non-sealed|strictfp|static)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_$][\w$]*)`)
	javaAnyClass = regexp.MustCompile(`(?m)^\s*(?:(?:abstract|final|strictfp)\s+)*class\s+([A-Za-z_$][\w$]*)`)
)

// JavaLayout names the file after the public top-level type, or the first
// class when nothing is public, falling back to Main. A package declaration
// moves the file into the matching directory and qualifies the entry.
func JavaLayout(source string) (string, string) {
	code := javaLineComment.ReplaceAllString(javaBlockComment.ReplaceAllString(source, ""), "")

	name := DefaultJavaClass
	if m := javaPublicType.FindStringSubmatch(code); m != nil {
		name = m[1]
	} else if m := javaAnyClass.FindStringSubmatch(code); m != nil {
		name = m[1]
	}

	rel, entry := name+".java", name
	if m := javaPackageDecl.FindStringSubmatch(code); m != nil {
		pkg := strings.Join(strings.Fields(m[1]), "")
		parts := append(strings.Split(pkg, "."), rel)
		rel = filepath.Join(parts...)
		entry = pkg + "." + name
	}
	return rel, entry
}

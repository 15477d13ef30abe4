// Package resolve turns an ast.Import's module path into a concrete
// filesystem target, per §4.6: language-tag detection by extension,
// relative-dot-count directory walking, and JS/TS import-path conversion
// for foreign-language imports picked up by the ESTree-adjacent transformer.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"jacc/internal/ast"
	"jacc/internal/logging"
)

// Language is the detected target language of a resolved import.
type Language string

const (
	LangJac        Language = "jac"
	LangPython     Language = "py"
	LangJavaScript Language = "js"
	LangTypeScript Language = "ts"
	LangUnknown    Language = ""
)

// extLang maps a file extension to its Language tag.
var extLang = map[string]Language{
	".jac": LangJac,
	".py":  LangPython,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
}

// DetectLanguage returns the Language implied by a file extension.
func DetectLanguage(path string) Language {
	if l, ok := extLang[filepath.Ext(path)]; ok {
		return l
	}
	return LangUnknown
}

// Result is a resolved import target.
type Result struct {
	AbsPath  string
	Language Language
	Found    bool
}

// Resolver resolves ast.Import nodes relative to the importing file's
// directory.
type Resolver struct {
	log *logging.Logger
	// Exists is swappable for tests; defaults to a real filesystem check.
	Exists func(path string) bool
}

// New creates a Resolver. log may be nil.
func New(log *logging.Logger) *Resolver {
	return &Resolver{log: log, Exists: defaultExists}
}

func defaultExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolve computes the target path for imp, relative to fromDir (the
// directory of the importing file). Relative imports (leading dots) walk up
// one directory per extra dot beyond the first, matching Jac's
// "." == same-package, ".." == parent-package convention.
func (r *Resolver) Resolve(imp *ast.Import, fromDir string) Result {
	if imp.Path == nil {
		return Result{}
	}

	dir := fromDir
	if imp.Path.DotCount > 0 {
		up := imp.Path.DotCount - 1
		for i := 0; i < up; i++ {
			dir = filepath.Dir(dir)
		}
	}

	rel := strings.Join(imp.Path.Parts, string(filepath.Separator))
	base := filepath.Join(dir, rel)

	lang := Language(imp.Lang)
	if lang == "" {
		lang = LangJac
	}

	candidates := r.candidatePaths(base, lang)
	for _, c := range candidates {
		if r.Exists(c) {
			r.debugf("resolved import %q -> %s", rel, c)
			return Result{AbsPath: c, Language: DetectLanguage(c), Found: true}
		}
	}
	r.debugf("import %q did not resolve under %s", rel, dir)
	return Result{Language: lang, Found: false}
}

func (r *Resolver) candidatePaths(base string, lang Language) []string {
	switch lang {
	case LangJac:
		return []string{base + ".jac", filepath.Join(base, "__init__.jac")}
	case LangJavaScript:
		return []string{base + ".js", base + ".jsx", filepath.Join(base, "index.js")}
	case LangTypeScript:
		return []string{base + ".ts", base + ".tsx", filepath.Join(base, "index.ts")}
	case LangPython:
		return []string{base + ".py", filepath.Join(base, "__init__.py")}
	default:
		return []string{base}
	}
}

// ToJSImportPath converts a resolved absolute path back into the
// forward-slash, extension-stripped form a JS/TS `import` statement expects
// (§4.11's ESTree-transformer needs this when re-emitting foreign import
// declarations).
func ToJSImportPath(fromDir, absPath string) string {
	rel, err := filepath.Rel(fromDir, absPath)
	if err != nil {
		rel = absPath
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

func (r *Resolver) debugf(format string, args ...interface{}) {
	if r.log != nil {
		r.log.Debug(format, args...)
	}
}

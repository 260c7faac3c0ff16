package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// DefaultEntryMarker is the text that follows a surface shading function's parameter list.
const DefaultEntryMarker = "-> SurfaceShaderResult"

// DefaultModuleExtension is the file extension of surface shading modules.
const DefaultModuleExtension = ".wgsl"

// Module is a surface shading module discovered in the module directory.
type Module struct {
	// Name is the module's file name and the identifier materials select it by.
	Name string

	// Path is the file the module was read from.
	Path string

	// Index is the dispatch index, 1..N.
	Index int

	// Function is the name of the module's entry function.
	Function string

	// Code is the module's WGSL source.
	Code string
}

type moduleFile struct {
	name string
	path string
	code string
}

// readModuleFiles returns the module files in dir sorted by file name. A missing
// directory yields no files and a nil error so the caller can degrade to default shading.
func readModuleFiles(dir, ext string) ([]moduleFile, bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("read shader directory %s: %w", dir, err)
	}

	var files []moduleFile
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ext {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, true, fmt.Errorf("read shader module %s: %w", path, err)
		}
		files = append(files, moduleFile{name: e.Name(), path: path, code: string(data)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, true, nil
}

// extractEntryName finds the entry function of a module: the identifier after the last
// "fn " that precedes the marker, up to the opening parenthesis.
func extractEntryName(code, marker string) (string, bool) {
	cleaned := stripComments(code)
	pos := strings.Index(cleaned, marker)
	if pos < 0 {
		return "", false
	}
	head := cleaned[:pos]
	fnPos := strings.LastIndex(head, "fn ")
	if fnPos < 0 {
		return "", false
	}
	rest := strings.TrimLeftFunc(head[fnPos+len("fn "):], unicode.IsSpace)
	name, _, ok := strings.Cut(rest, "(")
	if !ok {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsFunc(name, func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	}) {
		return "", false
	}
	return name, true
}

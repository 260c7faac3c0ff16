package shader

import "log"

// LinkerBuilderOption is a functional option for configuring a Linker via NewLinker.
type LinkerBuilderOption func(*linker)

// WithModuleDir is an option builder that sets the directory surface shading modules are read from.
//
// Parameters:
//   - dir: the module directory
//
// Returns:
//   - LinkerBuilderOption: a function that applies the module directory option to a linker
func WithModuleDir(dir string) LinkerBuilderOption {
	return func(l *linker) {
		l.moduleDir = dir
	}
}

// WithTemplate is an option builder that replaces the built-in kernel template with source.
//
// Parameters:
//   - source: the WGSL template containing the surface shading placeholders
//
// Returns:
//   - LinkerBuilderOption: a function that applies the template option to a linker
func WithTemplate(source string) LinkerBuilderOption {
	return func(l *linker) {
		l.template = source
		l.templatePath = ""
	}
}

// WithTemplatePath is an option builder that reads the kernel template from a file at link time.
//
// Parameters:
//   - path: the template file path
//
// Returns:
//   - LinkerBuilderOption: a function that applies the template path option to a linker
func WithTemplatePath(path string) LinkerBuilderOption {
	return func(l *linker) {
		l.templatePath = path
	}
}

// WithEntryMarker is an option builder that sets the text identifying a module's entry function.
//
// Parameters:
//   - marker: the marker text, ignored when empty
//
// Returns:
//   - LinkerBuilderOption: a function that applies the entry marker option to a linker
func WithEntryMarker(marker string) LinkerBuilderOption {
	return func(l *linker) {
		if marker != "" {
			l.marker = marker
		}
	}
}

// WithCompiler is an option builder that sets the compiler the composed kernel is handed to.
//
// Parameters:
//   - c: the compiler, ignored when nil
//
// Returns:
//   - LinkerBuilderOption: a function that applies the compiler option to a linker
func WithCompiler(c Compiler) LinkerBuilderOption {
	return func(l *linker) {
		if c != nil {
			l.compiler = c
		}
	}
}

// WithModuleExtension is an option builder that sets the file extension of module files.
//
// Parameters:
//   - ext: the extension including the dot, ignored when empty
//
// Returns:
//   - LinkerBuilderOption: a function that applies the extension option to a linker
func WithModuleExtension(ext string) LinkerBuilderOption {
	return func(l *linker) {
		if ext != "" {
			l.ext = ext
		}
	}
}

// WithLogger is an option builder that routes the linker's log lines to lg.
//
// Parameters:
//   - lg: the logger, ignored when nil
//
// Returns:
//   - LinkerBuilderOption: a function that applies the logger option to a linker
func WithLogger(lg *log.Logger) LinkerBuilderOption {
	return func(l *linker) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithWorkgroupSize overrides the x and y workgroup dimensions of the kernel's entry point.
//
// Parameters:
//   - x: threads per workgroup along the image width
//   - y: threads per workgroup along the image height
//
// Returns:
//   - LinkerBuilderOption: a function that applies the workgroup size option to a linker
func WithWorkgroupSize(x, y uint32) LinkerBuilderOption {
	return func(l *linker) {
		l.workgroup = [2]uint32{x, y}
	}
}

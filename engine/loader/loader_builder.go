package loader

import (
	"io/fs"
	"log/slog"
)

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(*loader)

// WithFS reads assets from fsys instead of the root directory.
//
// Parameters:
//   - fsys: the file system holding the asset files
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithSeed sets the seed of the procedural noise fallbacks.
func WithSeed(seed int64) LoaderBuilderOption {
	return func(l *loader) {
		l.seed = seed
	}
}

// WithCubeFaceSize sets the edge length every sky face is resampled to. Non-positive values are ignored.
func WithCubeFaceSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		if size > 0 {
			l.cubeSize = size
		}
	}
}

// WithConcurrency bounds the number of files decoded at once. Non-positive values are ignored.
func WithConcurrency(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger fallbacks are reported to.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}

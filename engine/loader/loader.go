// Package loader reads the demo's textures and sky cubemap, substituting procedural
// textures for anything missing or undecodable so the demo always starts.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedFormat is returned for files with an extension no backend decodes.
	ErrUnsupportedFormat = errors.New("loader: unsupported image format")
	// ErrInvalidImage is returned when a decoded image has no usable pixels.
	ErrInvalidImage = errors.New("loader: invalid image")
)

// Names of the demo's textures.
const (
	TextureGrass       = "grass"
	TextureSand        = "sand"
	TextureNoise       = "noise"
	TextureNoiseNormal = "noise_normal"
	TextureCaustic     = "caustic"
	TextureSubsurface  = "subsurface"
)

// SkyFaces are the cubemap face files in +X, -X, +Y, -Y, +Z, -Z order.
var SkyFaces = [6]string{
	"sky_pos_x.jpg", "sky_neg_x.jpg",
	"sky_pos_y.jpg", "sky_neg_y.jpg",
	"sky_pos_z.jpg", "sky_neg_z.jpg",
}

// TextureRequest names one texture file and what to use when it cannot be loaded.
type TextureRequest struct {
	Name     string
	File     string
	Fallback Fallback
	// Linear marks data textures (noise, normals, lookups) that must not be sRGB-decoded.
	Linear bool
}

// DefaultRequests are the textures the scene samples.
var DefaultRequests = []TextureRequest{
	{Name: TextureGrass, File: "grass.png", Fallback: FallbackChecker},
	{Name: TextureSand, File: "sand.png", Fallback: FallbackChecker},
	{Name: TextureCaustic, File: "caustic.png", Fallback: FallbackChecker},
	{Name: TextureNoise, File: "noise.png", Fallback: FallbackNoise, Linear: true},
	{Name: TextureNoiseNormal, File: "noise_normal.png", Fallback: FallbackNoiseNormal, Linear: true},
	{Name: TextureSubsurface, File: "subsurface.png", Fallback: FallbackSubsurface, Linear: true},
}

// Asset is a loaded texture and where it came from.
type Asset struct {
	Data common.TextureStagingData
	// Fallback is set when Data was generated because the file could not be used.
	Fallback bool
}

// AssetSet is everything the scene needs from disk.
type AssetSet struct {
	Textures map[string]Asset
	Sky      common.CubemapStagingData
	// SkyFallback is set when the sky is the procedural gradient.
	SkyFallback bool
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	fsys        fs.FS
	seed        int64
	cubeSize    int
	concurrency int
	logger      *slog.Logger

	cache map[string]Asset
}

// Loader reads textures from an asset directory and caches them by name.
type Loader interface {
	// LoadTexture reads one texture, or generates its fallback when the file is missing or
	// cannot be decoded. A fallback is logged, never returned as an error.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - req: the texture to load
	//
	// Returns:
	//   - Asset: the texture data
	//   - error: only ctx's error
	LoadTexture(ctx context.Context, req TextureRequest) (Asset, error)

	// LoadTextures loads every request in parallel.
	//
	// Parameters:
	//   - ctx: cancels the loads
	//   - reqs: the textures to load
	//
	// Returns:
	//   - map[string]Asset: the textures keyed by request name
	//   - error: only ctx's error
	LoadTextures(ctx context.Context, reqs []TextureRequest) (map[string]Asset, error)

	// LoadCubemap reads six face files and resamples them to a common square size. If any face
	// fails the whole cubemap falls back to a procedural gradient sky.
	//
	// Parameters:
	//   - ctx: cancels the loads
	//   - faces: face files in +X, -X, +Y, -Y, +Z, -Z order
	//
	// Returns:
	//   - common.CubemapStagingData: the faces
	//   - bool: true when the gradient fallback was used
	//   - error: only ctx's error
	LoadCubemap(ctx context.Context, faces [6]string) (common.CubemapStagingData, bool, error)

	// LoadSet loads DefaultRequests and SkyFaces.
	LoadSet(ctx context.Context) (AssetSet, error)

	// Get returns a previously loaded texture.
	Get(name string) (Asset, bool)
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from the directory root.
//
// Parameters:
//   - root: the asset directory
//   - options: functional options
//
// Returns:
//   - Loader: the new loader
func NewLoader(root string, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          &sync.RWMutex{},
		fsys:        os.DirFS(root),
		cubeSize:    512,
		concurrency: 4,
		logger:      slog.Default(),
		cache:       make(map[string]Asset),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadTexture(ctx context.Context, req TextureRequest) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	if a, ok := l.Get(req.Name); ok {
		return a, nil
	}

	data, err := l.decodeFile(req.File, 0)
	a := Asset{Data: data}
	if err != nil {
		l.logger.Warn("texture fallback", "name", req.Name, "file", req.File, "error", err)
		a = Asset{Data: req.Fallback.generate(l.seed), Fallback: true}
	}
	// the request decides the color space for files and fallbacks alike
	a.Data.Linear = req.Linear

	l.mu.Lock()
	l.cache[req.Name] = a
	l.mu.Unlock()
	return a, nil
}

func (l *loader) LoadTextures(ctx context.Context, reqs []TextureRequest) (map[string]Asset, error) {
	results := make([]Asset, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			a, err := l.LoadTexture(gctx, req)
			results[i] = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]Asset, len(reqs))
	for i, req := range reqs {
		out[req.Name] = results[i]
	}
	return out, nil
}

func (l *loader) LoadCubemap(ctx context.Context, faces [6]string) (common.CubemapStagingData, bool, error) {
	var cube common.CubemapStagingData
	var failed [6]error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range faces {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cube.Faces[i], failed[i] = l.decodeFile(name, l.cubeSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.CubemapStagingData{}, false, err
	}

	if err := errors.Join(failed[:]...); err != nil {
		l.logger.Warn("sky fallback", "faces", faces, "error", err)
		return GradientCubemap(l.cubeSize), true, nil
	}
	return cube, false, nil
}

func (l *loader) LoadSet(ctx context.Context) (AssetSet, error) {
	var set AssetSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		set.Textures, err = l.LoadTextures(gctx, DefaultRequests)
		return err
	})
	g.Go(func() error {
		var err error
		set.Sky, set.SkyFallback, err = l.LoadCubemap(gctx, SkyFaces)
		return err
	})
	if err := g.Wait(); err != nil {
		return AssetSet{}, fmt.Errorf("loader: %w", err)
	}
	return set, nil
}

func (l *loader) Get(name string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[name]
	return a, ok
}

func (l *loader) decodeFile(name string, size int) (common.TextureStagingData, error) {
	backend, err := resolveBackend(name)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	f, err := l.fsys.Open(name)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	defer f.Close()

	data, err := backend.Decode(f, size)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%s: %w", name, err)
	}
	if !data.Valid() {
		return common.TextureStagingData{}, fmt.Errorf("%w: %s", ErrInvalidImage, name)
	}
	return data, nil
}

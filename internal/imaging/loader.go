package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ImageCache provides thread-safe caching of decoded frames to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached copy without
// disk I/O.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// Sequence only consults a cache when one is attached with WithCache, and
// Sequence.Release drops the frames it loaded.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are PNG, JPEG, GIF and TIFF (first page only). The image
// is cached using the exact path string provided.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// LoadImage decodes a single image file from disk without caching.
func LoadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// SequenceInfo summarizes a frame directory.
type SequenceInfo struct {
	// Dir is the directory the frames were loaded from.
	Dir string `json:"dir"`

	// Count is the number of frames matched by the pattern.
	Count int `json:"count"`

	// FirstIndex and LastIndex are the smallest and largest frame indices.
	FirstIndex int `json:"first_index"`
	LastIndex  int `json:"last_index"`

	// Width and Height are the dimensions of the first frame.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Grayscale reports whether the first frame decodes as a single-channel image.
	Grayscale bool `json:"grayscale"`
}

// Info loads the first frame of the sequence and reports the directory summary.
func (s *Sequence) Info() (*SequenceInfo, error) {
	info := &SequenceInfo{Dir: s.Dir, Count: s.Len()}
	if s.Len() == 0 {
		return info, nil
	}
	info.FirstIndex = s.frames[0].Index
	info.LastIndex = s.frames[len(s.frames)-1].Index

	img, err := s.Image(0)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	info.Width = bounds.Dx()
	info.Height = bounds.Dy()
	info.Grayscale = IsGray(img)
	return info, nil
}

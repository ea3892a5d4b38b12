// Package images finds recipe images in the extracted archive, converts them
// and uploads them to the object store in bounded batches.
package images

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/lcbimport/internal/archive"
	"github.com/tphakala/lcbimport/internal/logger"
)

const listingTTL = 30 * time.Minute

// Resolver maps legacy image file names to files of the extracted archive.
// The file listing of each root is read once and shared by all lookups.
type Resolver struct {
	listings *cache.Cache
	log      logger.Logger
}

// NewResolver returns a Resolver with an empty listing cache.
func NewResolver() *Resolver {
	return &Resolver{
		// no janitor goroutine; listings live for one run
		listings: cache.New(listingTTL, 0),
		log:      GetLogger(),
	}
}

// Resolve returns the file under root whose path ends with the first
// candidate, compared case-insensitively. Only the first candidate is
// searched. When several files match, the first in path order wins.
func (r *Resolver) Resolve(root string, candidates []string) (string, bool) {
	if len(candidates) == 0 || candidates[0] == "" {
		return "", false
	}
	needle := strings.ToLower(candidates[0])

	for _, path := range r.listing(root) {
		if strings.HasSuffix(strings.ToLower(path), needle) {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) listing(root string) []string {
	if cached, ok := r.listings.Get(root); ok {
		return cached.([]string)
	}

	files, err := archive.FindFiles(root, func(string) bool { return true })
	if err != nil {
		r.log.Warn("failed to list extracted files",
			logger.String("root", root),
			logger.Error(err))
		files = nil
	}
	r.listings.SetDefault(root, files)
	return files
}

// Forget drops the cached listing of root.
func (r *Resolver) Forget(root string) {
	r.listings.Delete(root)
}

// GetLogger returns the module logger of the images package.
func GetLogger() logger.Logger {
	return logger.Global().Module("images")
}

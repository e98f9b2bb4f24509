package render

import (
	"fmt"
	"image"
	_ "image/gif"  // Support GIF format
	_ "image/jpeg" // Support JPEG format
	_ "image/png"  // Support PNG format
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // Support WebP format
)

const (
	DefaultMaxAvatars    = 64
	AvatarTTL            = 30 * time.Minute
	MaxConcurrentFetches = 3
	FetchTimeout         = 5 * time.Second
)

// AvatarCache resolves a wrestler's avatar seed to a circular image.
// Lookups never block: a miss starts a background fetch and the frame is drawn without it.
type AvatarCache struct {
	mu       sync.RWMutex
	images   map[string]cachedAvatar
	order    []string // oldest first
	maxSize  int
	template string // fmt pattern with one %s for the escaped seed

	pending map[string]bool
	client  *http.Client
	sem     chan struct{}
	now     func() time.Time
}

type cachedAvatar struct {
	img       image.Image
	fetchedAt time.Time
}

// NewAvatarCache builds a cache fetching from urlTemplate, e.g.
// "https://api.dicebear.com/9.x/adventurer/png?seed=%s"
func NewAvatarCache(urlTemplate string, maxSize int) *AvatarCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxAvatars
	}
	if !strings.Contains(urlTemplate, "%s") {
		urlTemplate += "%s"
	}
	return &AvatarCache{
		images:   make(map[string]cachedAvatar),
		order:    make([]string, 0, maxSize),
		maxSize:  maxSize,
		template: urlTemplate,
		pending:  make(map[string]bool),
		client:   &http.Client{Timeout: FetchTimeout},
		sem:      make(chan struct{}, MaxConcurrentFetches),
		now:      time.Now,
	}
}

// Get returns the cached avatar for seed or nil
func (c *AvatarCache) Get(seed string) image.Image {
	if c == nil || seed == "" {
		return nil
	}

	c.mu.RLock()
	cached, ok := c.images[seed]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if c.now().Sub(cached.fetchedAt) > AvatarTTL {
		c.mu.Lock()
		c.dropLocked(seed)
		c.mu.Unlock()
		return nil
	}
	return cached.img
}

// GetOrFetch returns the cached avatar, or nil after scheduling a fetch
func (c *AvatarCache) GetOrFetch(seed string) image.Image {
	if c == nil || seed == "" {
		return nil
	}
	if img := c.Get(seed); img != nil {
		return img
	}

	c.mu.Lock()
	if !c.pending[seed] {
		c.pending[seed] = true
		go c.fetch(seed)
	}
	c.mu.Unlock()
	return nil
}

func (c *AvatarCache) url(seed string) string {
	return fmt.Sprintf(c.template, url.QueryEscape(seed))
}

func (c *AvatarCache) fetch(seed string) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	defer func() {
		c.mu.Lock()
		delete(c.pending, seed)
		c.mu.Unlock()
	}()

	resp, err := c.client.Get(c.url(seed))
	if err != nil {
		log.Warn().Err(err).Str("seed", seed).Msg("⚠️ avatar fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("seed", seed).Msg("⚠️ avatar fetch rejected")
		return
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("seed", seed).Str("contentType", resp.Header.Get("Content-Type")).Msg("⚠️ avatar decode failed")
		return
	}

	circle := circular(img)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.images[seed]; !exists && len(c.images) >= c.maxSize {
		c.evictLocked()
	}
	c.dropLocked(seed)
	c.images[seed] = cachedAvatar{img: circle, fetchedAt: c.now()}
	c.order = append(c.order, seed)

	log.Debug().Str("seed", seed).Str("format", format).Msg("🖼️ avatar cached")
}

// circular crops the largest centered square and masks it to a circle
func circular(img image.Image) image.Image {
	b := img.Bounds()
	size := b.Dx()
	if b.Dy() < size {
		size = b.Dy()
	}
	offX := b.Min.X + (b.Dx()-size)/2
	offY := b.Min.Y + (b.Dy()-size)/2

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	center := size / 2
	radius := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-center, y-center
			if dx*dx+dy*dy <= radius*radius {
				out.Set(x, y, img.At(offX+x, offY+y))
			}
		}
	}
	return out
}

func (c *AvatarCache) evictLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.images, oldest)
}

func (c *AvatarCache) dropLocked(seed string) {
	if _, ok := c.images[seed]; !ok {
		return
	}
	delete(c.images, seed)
	for i, s := range c.order {
		if s == seed {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Size returns the number of cached avatars
func (c *AvatarCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

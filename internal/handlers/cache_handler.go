package handlers

import (
	"fmt"
	"log"
	"time"

	"imagecache-service/internal/imagecache"

	"github.com/gofiber/fiber/v2"
)

// CacheHandler exposes the image cache over the diagnostics HTTP surface.
type CacheHandler struct {
	cache *imagecache.InstrumentedService
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(cache *imagecache.InstrumentedService) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// LookupEntry handles GET /entries to resolve a source URI to its cached handle
// @Summary Resolve a cached URI
// @Description Look up the cache by source URI and return the stored handle on a hit
// @Tags cache
// @Produce json
// @Param uri query string true "Source image URI"
// @Success 200 {object} map[string]interface{} "Cache hit"
// @Failure 400 {object} map[string]interface{} "Missing uri parameter"
// @Failure 404 {object} map[string]interface{} "Cache miss"
// @Router /entries [get]
func (h *CacheHandler) LookupEntry(c *fiber.Ctx) error {
	uri := c.Query("uri")
	if uri == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "uri query parameter is required",
		})
	}

	startTime := time.Now()
	cached, ok := h.cache.GetURI(c.Context(), uri)
	latencyMs := float64(time.Since(startTime).Microseconds()) / 1000.0

	c.Set("X-Latency-Ms", fmt.Sprintf("%.2f", latencyMs))
	if !ok {
		c.Set("X-Cache-Hit", "false")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"hit": false,
			"key": imagecache.CacheKey(uri),
		})
	}

	c.Set("X-Cache-Hit", "true")
	return c.JSON(fiber.Map{
		"hit": true,
		"key": imagecache.CacheKey(uri),
		"uri": cached,
	})
}

// StoreEntry handles POST /entries to insert a URI into the cache
// @Summary Cache a URI
// @Description Insert or replace a cache entry; size is estimated from the URI when omitted
// @Tags cache
// @Accept json
// @Produce json
// @Param request body StoreEntryRequest true "Entry to cache"
// @Success 201 {object} map[string]interface{} "Entry cached"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /entries [post]
func (h *CacheHandler) StoreEntry(c *fiber.Ctx) error {
	var request StoreEntryRequest
	if err := c.BodyParser(&request); err != nil {
		log.Printf("Invalid store request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
		})
	}
	if request.URI == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "uri is required",
		})
	}

	key := h.cache.SetURI(c.Context(), request.URI, request.SizeBytes)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key": key,
	})
}

// RemoveEntry handles DELETE /entries/:key to drop one entry
// @Summary Remove a cache entry
// @Description Delete an entry by cache key
// @Tags cache
// @Produce json
// @Param key path string true "Cache key"
// @Success 204 "No Content"
// @Router /entries/{key} [delete]
func (h *CacheHandler) RemoveEntry(c *fiber.Ctx) error {
	h.cache.Remove(c.Context(), c.Params("key"))
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStats handles GET /stats to retrieve cache statistics
// @Summary Get cache statistics
// @Description Current size, item count, hit rate, and failure counters
// @Tags cache
// @Produce json
// @Success 200 {object} imagecache.Stats "Cache statistics"
// @Router /stats [get]
func (h *CacheHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Stats())
}

// Preload handles POST /preload to warm the cache with a list of URIs
// @Summary Preload URIs
// @Description Cache a list of URIs sequentially, paced by priority (high, normal, low)
// @Tags cache
// @Accept json
// @Produce json
// @Param request body PreloadRequest true "URIs to preload"
// @Success 200 {object} imagecache.PreloadReport "Preload report"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /preload [post]
func (h *CacheHandler) Preload(c *fiber.Ctx) error {
	var request PreloadRequest
	if err := c.BodyParser(&request); err != nil {
		log.Printf("Invalid preload request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
		})
	}
	if len(request.URIs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "No URIs provided",
		})
	}

	priority := imagecache.Priority(request.Priority)
	if priority == "" {
		priority = imagecache.PriorityNormal
	}

	report := h.cache.Preload(c.Context(), request.URIs, priority)
	return c.JSON(report)
}

// Prefetch handles POST /prefetch to warm the cache for one screen
// @Summary Prefetch a screen's images
// @Description Cache a screen's URIs in bounded concurrent batches
// @Tags cache
// @Accept json
// @Produce json
// @Param request body PrefetchRequest true "Screen and URIs"
// @Success 200 {object} imagecache.PreloadReport "Prefetch report"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /prefetch [post]
func (h *CacheHandler) Prefetch(c *fiber.Ctx) error {
	var request PrefetchRequest
	if err := c.BodyParser(&request); err != nil {
		log.Printf("Invalid prefetch request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
		})
	}
	if len(request.URIs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "No URIs provided",
		})
	}

	report := h.cache.PrefetchForScreen(c.Context(), request.Screen, request.URIs)
	return c.JSON(report)
}

// MemoryPressure handles POST /pressure to trigger emergency eviction
// @Summary Signal memory pressure
// @Description Evict the least recently used half of the cache
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]interface{} "Eviction result"
// @Router /pressure [post]
func (h *CacheHandler) MemoryPressure(c *fiber.Ctx) error {
	removed := h.cache.HandleMemoryPressure(c.Context())
	return c.JSON(fiber.Map{
		"removed": removed,
	})
}

// ClearCache handles POST /clear to drop every entry
// @Summary Clear the cache
// @Description Remove all entries and reset the hit/miss/eviction counters
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache cleared"
// @Router /clear [post]
func (h *CacheHandler) ClearCache(c *fiber.Ctx) error {
	h.cache.Clear(c.Context())
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache cleared successfully",
	})
}

// ExportCache handles GET /export for a diagnostics snapshot
// @Summary Export cache state
// @Description Snapshot of configuration, statistics, and every live entry
// @Tags cache
// @Produce json
// @Success 200 {object} imagecache.ExportData "Cache snapshot"
// @Router /export [get]
func (h *CacheHandler) ExportCache(c *fiber.Ctx) error {
	return c.JSON(h.cache.Export())
}

// Maintenance handles POST /maintenance to force one maintenance pass
// @Summary Run a maintenance pass
// @Description Apply threshold eviction and the TTL sweep immediately
// @Tags cache
// @Produce json
// @Success 200 {object} imagecache.Stats "Stats after the pass"
// @Router /maintenance [post]
func (h *CacheHandler) Maintenance(c *fiber.Ctx) error {
	h.cache.RunMaintenance(c.Context())
	return c.JSON(h.cache.Stats())
}

// StoreEntryRequest is the body for caching a single URI.
type StoreEntryRequest struct {
	URI       string `json:"uri"`
	SizeBytes int64  `json:"sizeBytes"`
}

// PreloadRequest is the body for preloading a list of URIs.
type PreloadRequest struct {
	URIs     []string `json:"uris"`
	Priority string   `json:"priority"`
}

// PrefetchRequest is the body for prefetching a screen's images.
type PrefetchRequest struct {
	Screen string   `json:"screen"`
	URIs   []string `json:"uris"`
}

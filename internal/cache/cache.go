// Package cache provides a thread-safe generic cache and the shared caches
// for rendered previews and syntax stylesheets.
package cache

import (
	"html/template"
	"sync"
)

// Cache is a map guarded by a RWMutex. A bounded cache evicts its oldest
// entry once it holds limit entries.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V

	limit int
	order []K
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func NewBoundedCache[K comparable, V any](limit int) *Cache[K, V] {
	c := NewCache[K, V]()
	if limit > 0 {
		c.limit = limit
	}
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.limit > 0 {
		for len(c.order) >= c.limit {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	if c.limit > 0 {
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
	c.order = nil
}

// RenderedContent is a cached HTML preview and whatever the renderer
// extracted alongside it.
type RenderedContent struct {
	HTML  []byte
	Extra any
}

const renderedLimit = 2048

var renderedMarkdownCache = NewBoundedCache[string, *RenderedContent](renderedLimit)

func GetRenderedMarkdown(contentHash, syntaxTheme string) (*RenderedContent, bool) {
	return renderedMarkdownCache.Get(contentHash + ":" + syntaxTheme)
}

func SetRenderedMarkdown(contentHash, syntaxTheme string, html []byte, extra any) {
	renderedMarkdownCache.Set(contentHash+":"+syntaxTheme, &RenderedContent{
		HTML:  html,
		Extra: extra,
	})
}

func ClearRenderedMarkdownCache() {
	renderedMarkdownCache.Clear()
}

// Syntax theme stylesheets never change for a given chroma style.
var syntaxCache = NewCache[string, template.CSS]()

func GetSyntaxCSS(theme string) (template.CSS, bool) {
	return syntaxCache.Get(theme)
}

func SetSyntaxCSS(theme string, css template.CSS) {
	syntaxCache.Set(theme, css)
}

package siox

// Classification records, for one raw pixel value, the nearest background and
// foreground centroids and their squared distances.
type Classification struct {
	MinBgDist float64
	BgIndex   int
	MinFgDist float64
	FgIndex   int
}

// IsBackground reports whether the color is at least as close to the
// background signature as to the foreground one. The same rule applies on a
// color's first classification and on cache hits; classic SIOX compares
// strictly on the first pass, which sends ties to foreground.
func (c Classification) IsBackground() bool {
	return c.MinBgDist <= c.MinFgDist
}

// Cache memoizes classifications by raw pixel value. Entries are only valid
// for the signatures they were computed against.
type Cache struct {
	entries map[uint32]Classification
}

func NewCache() *Cache {
	return &Cache{entries: make(map[uint32]Classification)}
}

func (c *Cache) Get(pixel uint32) (Classification, bool) {
	v, ok := c.entries[pixel]
	return v, ok
}

func (c *Cache) Put(pixel uint32, v Classification) {
	c.entries[pixel] = v
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	clear(c.entries)
}

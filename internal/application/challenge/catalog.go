package challenge

import "fmt"

// Challenge is a single item served by the API
type Challenge struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Catalog is the fixed, ordered list of challenges generated at startup.
// It is never mutated after NewCatalog returns, so concurrent reads need
// no locking.
type Catalog struct {
	items []Challenge
}

// NewCatalog creates challenges with ids 1..count
func NewCatalog(count int) *Catalog {
	items := make([]Challenge, 0, count)
	for i := 1; i <= count; i++ {
		items = append(items, Challenge{ID: i, Name: fmt.Sprintf("Challenge %d", i)})
	}
	return &Catalog{items: items}
}

// All returns a copy of every challenge in id order
func (c *Catalog) All() []Challenge {
	out := make([]Challenge, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the challenges whose id matches, which is zero or one item
func (c *Catalog) Find(id int) []Challenge {
	out := []Challenge{}
	for _, item := range c.items {
		if item.ID == id {
			out = append(out, item)
		}
	}
	return out
}

// Len returns the number of challenges
func (c *Catalog) Len() int {
	return len(c.items)
}

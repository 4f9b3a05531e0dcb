package collection

import "fmt"

// Projection is the cached, list-facing shape of a document as derived by a
// View's Map function.
type Projection map[string]any

// View configures what gets cached per document and what list queries
// expose. Version is part of every cache key, so changing the view
// definition must come with a new version string: entries cached under the
// old version are simply never read again.
type View struct {
	// Version tags cache entries produced by this view.
	Version string
	// Map derives the cached projection from a document.
	Map func(Document) Projection
	// Filter optionally excludes projections from list results. Nil keeps
	// everything.
	Filter func(Projection) bool
}

// DefaultView projects the whole document unchanged.
func DefaultView() View {
	return View{
		Version: "v1",
		Map: func(d Document) Projection {
			out := make(Projection, len(d))
			for k, v := range d {
				out[k] = v
			}
			return out
		},
	}
}

// cacheKey builds the view-cache key for one document version.
func (v View) cacheKey(id, etag string) string {
	return fmt.Sprintf("%s,%s,%s", id, etag, v.Version)
}

package platform

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/ports"
)

// Registry keeps a mapping from platform tags to their scraping adapters.
type Registry struct {
	sources map[domain.Platform]ports.TrendingSource
	order   []domain.Platform
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[domain.Platform]ports.TrendingSource{}}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(src ports.TrendingSource) {
	if r.sources == nil {
		r.sources = map[domain.Platform]ports.TrendingSource{}
	}
	if _, ok := r.sources[src.Platform()]; !ok {
		r.order = append(r.order, src.Platform())
	}
	r.sources[src.Platform()] = src
}

// Resolve returns an adapter by platform tag or an error if it is absent.
func (r *Registry) Resolve(platform domain.Platform) (ports.TrendingSource, error) {
	if src, ok := r.sources[platform]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("platform %s is not registered", platform)
}

// All returns the registered adapters in registration order.
func (r *Registry) All() []ports.TrendingSource {
	out := make([]ports.TrendingSource, 0, len(r.order))
	for _, platform := range r.order {
		out = append(out, r.sources[platform])
	}
	return out
}

// itemSelection tries each container selector in order and returns the
// first one matching at least one node.
func itemSelection(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

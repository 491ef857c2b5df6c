package news

import (
	"context"

	"github.com/tkrnews/newsgather/internal/region"
)

// Scope says how often the aggregator queries a source per region.
type Scope int

const (
	// PerTerm sources are queried once for every search term.
	PerTerm Scope = iota
	// PerRegion sources ignore search terms and are queried once per call.
	PerRegion
)

func (s Scope) String() string {
	if s == PerRegion {
		return "per-region"
	}
	return "per-term"
}

// Source is one upstream news provider. For PerRegion sources term is empty.
type Source interface {
	Name() string
	Scope() Scope
	Search(ctx context.Context, term string, reg region.Region) ([]RawEntry, error)
}

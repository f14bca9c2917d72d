package backend

import (
	"fmt"
	"sort"

	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
)

// Constructor builds a backend for one family
type Constructor func(descriptor domain.BackendDescriptor, opts Options) ports.Backend

// Factory picks the implementation for a descriptor's family
type Factory struct {
	constructors map[domain.Family]Constructor
	opts         Options
}

var _ ports.BackendFactory = (*Factory)(nil)

func NewFactory(opts Options) *Factory {
	f := &Factory{
		constructors: make(map[domain.Family]Constructor),
		opts:         opts,
	}

	f.Register(domain.FamilyNative, func(d domain.BackendDescriptor, o Options) ports.Backend {
		return NewOllamaBackend(d, o)
	})
	f.Register(domain.FamilyOpenAI, func(d domain.BackendDescriptor, o Options) ports.Backend {
		return NewOpenAIBackend(d, o)
	})
	return f
}

// Register adds or replaces the constructor for family
func (f *Factory) Register(family domain.Family, ctor Constructor) {
	f.constructors[family] = ctor
}

func (f *Factory) Create(descriptor domain.BackendDescriptor) (ports.Backend, error) {
	ctor, ok := f.constructors[descriptor.Family]
	if !ok {
		return nil, fmt.Errorf("no backend registered for family %q", descriptor.Family)
	}
	return ctor(descriptor, f.opts), nil
}

func (f *Factory) Families() []domain.Family {
	families := make([]domain.Family, 0, len(f.constructors))
	for family := range f.constructors {
		families = append(families, family)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families
}

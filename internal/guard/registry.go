package guard

import "sort"

// BlockType is a validated block catalog id such as "BEDROCK".
type BlockType string

// Registry is the set of block types currently flagged unbreakable.
type Registry struct {
	types map[BlockType]struct{}
}

func NewRegistry(types ...BlockType) *Registry {
	r := &Registry{types: make(map[BlockType]struct{}, len(types))}
	for _, t := range types {
		r.types[t] = struct{}{}
	}
	return r
}

func (r *Registry) Has(t BlockType) bool {
	_, ok := r.types[t]
	return ok
}

// Add returns false when t was already protected.
func (r *Registry) Add(t BlockType) bool {
	if r.Has(t) {
		return false
	}
	r.types[t] = struct{}{}
	return true
}

// Remove returns false when t was not protected.
func (r *Registry) Remove(t BlockType) bool {
	if !r.Has(t) {
		return false
	}
	delete(r.types, t)
	return true
}

func (r *Registry) Len() int { return len(r.types) }

// List returns a snapshot in map order.
func (r *Registry) List() []BlockType {
	out := make([]BlockType, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	return out
}

func (r *Registry) Sorted() []BlockType {
	out := r.List()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

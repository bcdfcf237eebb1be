package memory

import "context"

// DefaultTable maps page -> element -> fallback selectors, most preferred first.
// Agents ship one as the static knowledge used before anything was learned.
type DefaultTable map[string]map[string][]string

// Lookup returns the fallback selectors for (page, element).
func (t DefaultTable) Lookup(page, element string) []string {
	return t[page][element]
}

// Merge returns a new table with other's elements layered over t's.
func (t DefaultTable) Merge(other DefaultTable) DefaultTable {
	out := make(DefaultTable, len(t)+len(other))
	for _, src := range []DefaultTable{t, other} {
		for page, elems := range src {
			dst, ok := out[page]
			if !ok {
				dst = make(map[string][]string, len(elems))
				out[page] = dst
			}
			for name, sels := range elems {
				dst[name] = append([]string(nil), sels...)
			}
		}
	}
	return out
}

// Resolver chains the learned memory in front of a DefaultTable.
type Resolver struct {
	store    *Store
	defaults DefaultTable
}

// NewResolver creates a Resolver. defaults may be nil.
func NewResolver(store *Store, defaults DefaultTable) *Resolver {
	if defaults == nil {
		defaults = DefaultTable{}
	}
	return &Resolver{store: store, defaults: defaults}
}

// Store returns the underlying memory.
func (r *Resolver) Store() *Store { return r.store }

// Extend returns a Resolver over the same store with extra defaults layered on top.
func (r *Resolver) Extend(extra DefaultTable) *Resolver {
	return &Resolver{store: r.store, defaults: r.defaults.Merge(extra)}
}

// Candidates returns the selectors to try for (page, element): the remembered
// one first, then the defaults in order, without duplicates. Reading the
// remembered selector refreshes its last_accessed time.
func (r *Resolver) Candidates(ctx context.Context, page, element string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	remembered, ok, err := r.store.GetSelector(ctx, page, element)
	if err != nil {
		return nil, err
	}
	if ok && remembered != "" {
		out = append(out, remembered)
		seen[remembered] = true
	}

	for _, sel := range r.defaults.Lookup(page, element) {
		if sel == "" || seen[sel] {
			continue
		}
		seen[sel] = true
		out = append(out, sel)
	}
	return out, nil
}

// Report feeds the outcome of an attempt back into the memory.
func (r *Resolver) Report(ctx context.Context, page, element, selector string, success bool) error {
	return r.store.UpdateSelector(ctx, page, element, selector, success)
}

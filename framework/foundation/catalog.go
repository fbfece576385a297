package foundation

import "slices"

// CatalogEntry describes a discoverable provider without instantiating it.
type CatalogEntry struct {
	Name string
	New  func() ServiceProvider
}

// Catalog is the manifest a package exports so the application can discover
// its providers. Framework packages publish theirs from providers.Catalog.
type Catalog []CatalogEntry

// Merge returns a catalog with the entries of c followed by those of others.
// Later entries with a name already present are skipped.
func (c Catalog) Merge(others ...Catalog) Catalog {
	out := slices.Clone(c)
	for _, other := range others {
		for _, e := range other {
			if !out.Has(e.Name) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Has reports whether an entry with name exists.
func (c Catalog) Has(name string) bool {
	return slices.ContainsFunc(c, func(e CatalogEntry) bool { return e.Name == name })
}

// Names lists entry names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

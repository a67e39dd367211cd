package shortlist

// Set holds one shortlist per query, indexed by query ID.
type Set []*Shortlist

// NewSet allocates n empty shortlists of the given capacity.
func NewSet(n, capacity int) Set {
	set := make(Set, n)
	for i := range set {
		set[i] = New(capacity)
	}
	return set
}

// Merge folds other into s query by query. Both sets must have the same
// length.
func (s Set) Merge(other Set) {
	for i, list := range other {
		s[i].Merge(list)
	}
}

package lead

// DefaultBundleSize is the number of consecutive same-company leads per bundle.
const DefaultBundleSize = 50

// BundleAssigner partitions rows into fixed-size groups per company, in
// arrival order. Company names are compared case-sensitively, exactly as
// they appear in the data; unresolved companies all share the
// UnknownCompany counter. State lives for one dataset run and is never
// persisted.
type BundleAssigner struct {
	size   int
	counts map[string]int
}

// NewBundleAssigner creates an assigner with the given bundle size.
// A non-positive size falls back to DefaultBundleSize.
func NewBundleAssigner(size int) *BundleAssigner {
	if size <= 0 {
		size = DefaultBundleSize
	}
	return &BundleAssigner{
		size:   size,
		counts: make(map[string]int),
	}
}

// Assign records one more occurrence of company and returns its bundle
// number: occurrences 1..size get bundle 1, size+1..2*size get bundle 2,
// and so on.
func (a *BundleAssigner) Assign(company string) int {
	a.counts[company]++
	return (a.counts[company]-1)/a.size + 1
}

// Count returns the number of occurrences seen so far for company.
func (a *BundleAssigner) Count(company string) int {
	return a.counts[company]
}

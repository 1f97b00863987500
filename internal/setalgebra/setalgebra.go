// Package setalgebra implements the set operations over sorted, keyed
// sequences that the transition engine uses to diff an old and a new
// manifest (§4.2): find, intersect, subtract and unify. All operations
// assume their inputs are already sorted by the same key order and preserve
// that order in their outputs; none mutate their inputs.
//
// Rather than model a self-referential "comparable key" type class (which
// Go's generics express awkwardly), every operation takes a `less(a, b T)
// bool` comparator supplied by the caller — the same shape as sort.Slice,
// which the manifest package already sorts with.
package setalgebra

// Find does a binary-search lookup for an item whose key equals target's
// key (as defined by less), returning it and true, or the zero value and
// false. O(log n). s must be sorted according to less.
func Find[T any](s []T, target T, less func(a, b T) bool) (T, bool) {
	var zero T
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if less(s[mid], target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s) && !less(target, s[lo]) && !less(s[lo], target) {
		return s[lo], true
	}
	return zero, false
}

// Intersect returns the items of the smaller of a, b whose key is present in
// the other, preserving the order of the side it draws from (§4.2).
func Intersect[T any](a, b []T, less func(x, y T) bool) []T {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	out := make([]T, 0, len(small))
	for _, item := range small {
		if _, ok := Find(large, item, less); ok {
			out = append(out, item)
		}
	}
	return out
}

// Subtract returns the items of a whose key is not present in b, preserving
// a's order (§4.2). subtract(A, B) ∩ B = ∅ and subtract(A, B) ∪ intersect(A,
// B) = A by construction.
func Subtract[T any](a, b []T, less func(x, y T) bool) []T {
	out := make([]T, 0, len(a))
	for _, item := range a {
		if _, ok := Find(b, item, less); !ok {
			out = append(out, item)
		}
	}
	return out
}

// Unify merges old and new in key order into the scheduler's working set:
// every entry from old is emitted, tagged DEACTIVATED==false (the caller
// applies ACTIVATED); every entry from new not present in intersection is
// emitted, tagged "new" so the caller can set DEACTIVATED. Entries shared
// via intersection are taken from old only, once. setStatus is called
// exactly once per emitted item with fromOld indicating provenance, letting
// the caller assign ACTIVATED/DEACTIVATED per §4.2 without this package
// knowing about ServiceMapping's Status field.
func Unify[T any](old, new_, intersection []T, less func(x, y T) bool, setStatus func(item T, fromOld bool) T) []T {
	isInIntersection := func(item T) bool {
		_, ok := Find(intersection, item, less)
		return ok
	}

	out := make([]T, 0, len(old)+len(new_))
	i, j := 0, 0
	for i < len(old) && j < len(new_) {
		switch {
		case less(old[i], new_[j]):
			out = append(out, setStatus(old[i], true))
			i++
		case less(new_[j], old[i]):
			if !isInIntersection(new_[j]) {
				out = append(out, setStatus(new_[j], false))
			}
			j++
		default:
			out = append(out, setStatus(old[i], true))
			i++
			j++
		}
	}
	for ; i < len(old); i++ {
		out = append(out, setStatus(old[i], true))
	}
	for ; j < len(new_); j++ {
		if !isInIntersection(new_[j]) {
			out = append(out, setStatus(new_[j], false))
		}
	}
	return out
}

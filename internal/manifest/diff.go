package manifest

import "coordinator/internal/setalgebra"

// LessServiceMapping orders two ServiceMapping pointers by their (target,
// container, service) key, the canonical order from §3.
func LessServiceMapping(a, b *ServiceMapping) bool {
	return a.Key().Less(b.Key())
}

// LessSnapshotMapping orders two SnapshotMapping pointers by their (target,
// container, component) key.
func LessSnapshotMapping(a, b *SnapshotMapping) bool {
	return a.Key().Less(b.Key())
}

// IntersectServiceMappings returns entries present (by key) in both arrays,
// drawn from the smaller side, preserving order (§4.2).
func IntersectServiceMappings(a, b []*ServiceMapping) []*ServiceMapping {
	return setalgebra.Intersect(a, b, LessServiceMapping)
}

// SubtractServiceMappings returns entries of a whose key is absent from b.
func SubtractServiceMappings(a, b []*ServiceMapping) []*ServiceMapping {
	return setalgebra.Subtract(a, b, LessServiceMapping)
}

// UnifyServiceMappings builds the scheduler's working set (§4.2): every
// entry of old tagged ACTIVATED, every entry of new not in intersection
// tagged DEACTIVATED, entries shared via intersection taken once from old.
func UnifyServiceMappings(old, new_, intersection []*ServiceMapping) []*ServiceMapping {
	return setalgebra.Unify(old, new_, intersection, LessServiceMapping, func(item *ServiceMapping, fromOld bool) *ServiceMapping {
		clone := *item
		if fromOld {
			clone.Status = StatusActivated
		} else {
			clone.Status = StatusDeactivated
		}
		return &clone
	})
}

// FindServiceMappingInSlice does a binary-search lookup of key in a sorted
// slice, used by the scheduler to resolve InterDependencyMapping references
// against the union array.
func FindServiceMappingInSlice(s []*ServiceMapping, key ServiceMappingKey) (*ServiceMapping, bool) {
	probe := &ServiceMapping{Target: key.Target, Container: key.Container, Service: key.Service}
	return setalgebra.Find(s, probe, LessServiceMapping)
}

// SubtractSnapshotMappings returns entries of a whose (target, container,
// component) key is absent from b — used by the migration engine (§4.7) to
// find snapshot mappings present only on one side (moved placements).
func SubtractSnapshotMappings(a, b []*SnapshotMapping) []*SnapshotMapping {
	return setalgebra.Subtract(a, b, LessSnapshotMapping)
}

// IntersectSnapshotMappings returns entries present (by key) in both arrays.
func IntersectSnapshotMappings(a, b []*SnapshotMapping) []*SnapshotMapping {
	return setalgebra.Intersect(a, b, LessSnapshotMapping)
}

// FindInterDependencyMapping looks up a key within a []InterDependencyMapping
// by linear scan — these lists are small (one service's direct dependency
// set) so no sort/binary-search discipline is imposed on them, matching the
// original's array-of-pointers traversal.
func FindInterDependencyMapping(deps []InterDependencyMapping, key ServiceMappingKey) (InterDependencyMapping, bool) {
	for _, d := range deps {
		if d.Target == key.Target && d.Container == key.Container && d.Service == key.Service {
			return d, true
		}
	}
	return InterDependencyMapping{}, false
}

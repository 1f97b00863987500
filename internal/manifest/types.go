// Package manifest is the typed in-memory representation of a deployment
// manifest: targets, services, service mappings and snapshot mappings (§3),
// together with parsing, validation and printing for the two surface forms
// described in §6.
package manifest

import (
	"sort"
	"strconv"
	"strings"
)

// PropertyValue is the dynamically-typed value of a target property. It
// holds exactly one of string, int64, float64, bool, []PropertyValue or
// map[string]PropertyValue, matching the {string,int,float,bool,list,attrs}
// type attribute on <property> elements in §6.
type PropertyValue struct {
	Kind  PropertyKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	List  []PropertyValue
	Attrs map[string]PropertyValue
}

// PropertyKind discriminates the PropertyValue union.
type PropertyKind int

const (
	KindString PropertyKind = iota
	KindInt
	KindFloat
	KindBool
	KindList
	KindAttrs
)

// String returns the value's textual rendering, used by the XML printer
// and by target.FindTargetKey.
func (p PropertyValue) String() string {
	switch p.Kind {
	case KindString:
		return p.Str
	case KindInt:
		return strconv.FormatInt(p.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(p.Float, 'g', -1, 64)
	case KindBool:
		if p.Bool {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(p.List))
		for i, v := range p.List {
			parts[i] = v.String()
		}
		return strings.Join(parts, " ")
	case KindAttrs:
		keys := make([]string, 0, len(p.Attrs))
		for k := range p.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + p.Attrs[k].String()
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Target is a deployable machine (§3).
type Target struct {
	System          string
	ClientInterface string
	TargetProperty  string
	Properties      map[string]PropertyValue
	Containers      map[string]map[string]string
	NumOfCores      int
	AvailableCores  int
}

// InterDependencyMapping is a reference to another mapping by key triple
// (§3). Sort order is (Target, Container, Service).
type InterDependencyMapping struct {
	Service   string
	Container string
	Target    string
}

// Less implements the canonical (target, container, service) ordering.
func (m InterDependencyMapping) Less(o InterDependencyMapping) bool {
	if m.Target != o.Target {
		return m.Target < o.Target
	}
	if m.Container != o.Container {
		return m.Container < o.Container
	}
	return m.Service < o.Service
}

// ManifestService describes one deployable service definition (§3).
type ManifestService struct {
	Name              string
	Pkg               string
	Type              string
	DependsOn         []InterDependencyMapping // order-significant
	ConnectsTo        []InterDependencyMapping // order-irrelevant
	ProvidesContainers map[string]map[string]string
}

// ServiceMappingStatus is the scheduler's runtime status for a placement.
type ServiceMappingStatus int

const (
	StatusDeactivated ServiceMappingStatus = iota
	StatusInProgress
	StatusActivated
	StatusError
)

func (s ServiceMappingStatus) String() string {
	switch s {
	case StatusDeactivated:
		return "DEACTIVATED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusActivated:
		return "ACTIVATED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ServiceMappingKey identifies a ServiceMapping: (target, container, service).
type ServiceMappingKey struct {
	Target    string
	Container string
	Service   string
}

// Less implements the canonical (target, container, service) ordering used
// for sorting and binary search (§4.1, §4.2).
func (k ServiceMappingKey) Less(o ServiceMappingKey) bool {
	if k.Target != o.Target {
		return k.Target < o.Target
	}
	if k.Container != o.Container {
		return k.Container < o.Container
	}
	return k.Service < o.Service
}

// ServiceMapping is a placement decision (§3).
type ServiceMapping struct {
	Service                   string
	Container                 string
	Target                    string
	ContainerProvidedByService string // optional, empty if unset
	Status                    ServiceMappingStatus
}

// Key returns the mapping's identity key.
func (m ServiceMapping) Key() ServiceMappingKey {
	return ServiceMappingKey{Target: m.Target, Container: m.Container, Service: m.Service}
}

// SnapshotMappingKey identifies a SnapshotMapping: (target, container, component).
type SnapshotMappingKey struct {
	Target    string
	Container string
	Component string
}

func (k SnapshotMappingKey) Less(o SnapshotMappingKey) bool {
	if k.Target != o.Target {
		return k.Target < o.Target
	}
	if k.Container != o.Container {
		return k.Container < o.Container
	}
	return k.Component < o.Component
}

// SnapshotMapping names a piece of state that must migrate when a service's
// placement changes (§3).
type SnapshotMapping struct {
	Component                  string
	Container                  string
	Target                     string
	Service                    string
	ContainerProvidedByService string
	Transferred                bool
}

func (m SnapshotMapping) Key() SnapshotMappingKey {
	return SnapshotMappingKey{Target: m.Target, Container: m.Container, Component: m.Component}
}

// Manifest aggregates the full deployment description (§3).
type Manifest struct {
	Services             map[string]*ManifestService
	ServiceMappingArray   []*ServiceMapping   // sorted by key
	SnapshotMappingArray  []*SnapshotMapping  // sorted by key
	ProfileMappingTable   map[string]string   // targetKey -> store path
	TargetsTable          map[string]*Target  // targetKey -> Target
}

// New returns an empty, initialized Manifest.
func New() *Manifest {
	return &Manifest{
		Services:            make(map[string]*ManifestService),
		ProfileMappingTable: make(map[string]string),
		TargetsTable:        make(map[string]*Target),
	}
}

// SortServiceMappings sorts the service-mapping array by its (target,
// container, service) key, the discipline required at load time (§4.1).
func (m *Manifest) SortServiceMappings() {
	sort.Slice(m.ServiceMappingArray, func(i, j int) bool {
		return m.ServiceMappingArray[i].Key().Less(m.ServiceMappingArray[j].Key())
	})
}

// SortSnapshotMappings sorts the snapshot-mapping array by its (target,
// container, component) key.
func (m *Manifest) SortSnapshotMappings() {
	sort.Slice(m.SnapshotMappingArray, func(i, j int) bool {
		return m.SnapshotMappingArray[i].Key().Less(m.SnapshotMappingArray[j].Key())
	})
}

// FindServiceMapping does a binary search by key (§4.2's find, specialized).
func (m *Manifest) FindServiceMapping(key ServiceMappingKey) *ServiceMapping {
	n := len(m.ServiceMappingArray)
	i := sort.Search(n, func(i int) bool {
		return !m.ServiceMappingArray[i].Key().Less(key)
	})
	if i < n && m.ServiceMappingArray[i].Key() == key {
		return m.ServiceMappingArray[i]
	}
	return nil
}


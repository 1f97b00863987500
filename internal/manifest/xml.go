package manifest

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"coordinator/internal/errs"
)

// LoadFlag selects which manifest sub-trees ParseXML populates (§4.1).
type LoadFlag int

const (
	FlagDistribution LoadFlag = 1 << iota
	FlagServices
	FlagServiceMappings
	FlagSnapshotMappings
	FlagInfrastructure
)

const FlagAll = FlagDistribution | FlagServices | FlagServiceMappings | FlagSnapshotMappings | FlagInfrastructure

// Filter restricts which snapshot mappings ParseXML retains.
type Filter struct {
	Container string // empty = no restriction
	Component string // empty = no restriction
}

// --- wire types mirroring §6's XML schema -----------------------------

type xmlManifest struct {
	XMLName         xml.Name             `xml:"manifest"`
	Services        *xmlServices         `xml:"services"`
	ServiceMappings *xmlServiceMappings  `xml:"serviceMappings"`
	SnapshotMappings *xmlSnapshotMappings `xml:"snapshotMappings"`
	Profiles        *xmlProfiles         `xml:"profiles"`
	Infrastructure  *xmlInfrastructure   `xml:"infrastructure"`
}

type xmlServices struct {
	Service []xmlService `xml:"service"`
}

type xmlService struct {
	Name               string              `xml:"name"`
	Pkg                string              `xml:"pkg"`
	Type               string              `xml:"type"`
	DependsOn          *xmlMappingList     `xml:"dependsOn"`
	ConnectsTo         *xmlMappingList     `xml:"connectsTo"`
	ProvidesContainers *xmlContainersBlock `xml:"providesContainers"`
}

type xmlMappingList struct {
	Mapping []xmlInterDependencyMapping `xml:"mapping"`
}

type xmlInterDependencyMapping struct {
	Service   string `xml:"service"`
	Container string `xml:"container"`
	Target    string `xml:"target"`
}

type xmlContainersBlock struct {
	Container []xmlContainer `xml:"container"`
}

type xmlContainer struct {
	Name     string         `xml:"name,attr"`
	Property []xmlProperty  `xml:"property"`
}

type xmlProperty struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
	// Value holds the leaf text for every type except "attrs", which
	// nests further <property> children instead (§6, §8 round-trip).
	Value    string        `xml:",chardata"`
	Property []xmlProperty `xml:"property"`
}

type xmlServiceMappings struct {
	Mapping []xmlServiceMapping `xml:"mapping"`
}

type xmlServiceMapping struct {
	Service                    string `xml:"service"`
	Container                  string `xml:"container"`
	Target                     string `xml:"target"`
	ContainerProvidedByService string `xml:"containerProvidedByService,omitempty"`
}

type xmlSnapshotMappings struct {
	Mapping []xmlSnapshotMapping `xml:"mapping"`
}

type xmlSnapshotMapping struct {
	Component                  string `xml:"component"`
	Container                  string `xml:"container"`
	Target                     string `xml:"target"`
	Service                    string `xml:"service"`
	ContainerProvidedByService string `xml:"containerProvidedByService,omitempty"`
}

type xmlProfiles struct {
	Profile []xmlProfile `xml:"profile"`
}

type xmlProfile struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlInfrastructure struct {
	Target []xmlTarget `xml:"target"`
}

type xmlTarget struct {
	Name            string         `xml:"name,attr"`
	System          string         `xml:"system"`
	ClientInterface string         `xml:"clientInterface"`
	TargetProperty  string         `xml:"targetProperty"`
	NumOfCores      int            `xml:"numOfCores"`
	Property        []xmlProperty  `xml:"property"`
	Containers      *xmlContainersBlock `xml:"containers"`
}

// --- parsing ------------------------------------------------------------

// ParseXML parses the canonical manifest XML form (§6), populating only the
// sub-trees selected by flags, and applying the optional snapshot-mapping
// filter.
func ParseXML(r io.Reader, flags LoadFlag, filter *Filter) (*Manifest, error) {
	var wire xmlManifest
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, &errs.ParseError{Err: err}
	}

	m := New()

	if flags&FlagInfrastructure != 0 && wire.Infrastructure != nil {
		for _, xt := range wire.Infrastructure.Target {
			t, err := decodeTarget(xt)
			if err != nil {
				return nil, err
			}
			if _, dup := m.TargetsTable[xt.Name]; dup {
				return nil, &errs.ValidationError{Reason: fmt.Sprintf("duplicate target key %q", xt.Name)}
			}
			m.TargetsTable[xt.Name] = t
		}
	}

	if flags&FlagServices != 0 && wire.Services != nil {
		for _, xs := range wire.Services.Service {
			svc, err := decodeService(xs)
			if err != nil {
				return nil, err
			}
			if _, dup := m.Services[xs.Name]; dup {
				return nil, &errs.ValidationError{Reason: fmt.Sprintf("duplicate service key %q", xs.Name)}
			}
			m.Services[xs.Name] = svc
		}
	}

	if flags&FlagServiceMappings != 0 && wire.ServiceMappings != nil {
		for _, xm := range wire.ServiceMappings.Mapping {
			if xm.Service == "" || xm.Container == "" || xm.Target == "" {
				return nil, &errs.ValidationError{Reason: "service mapping missing service/container/target"}
			}
			sm := &ServiceMapping{
				Service:                    xm.Service,
				Container:                  xm.Container,
				Target:                     xm.Target,
				ContainerProvidedByService: xm.ContainerProvidedByService,
				Status:                     StatusDeactivated,
			}
			m.ServiceMappingArray = append(m.ServiceMappingArray, sm)
		}
		m.SortServiceMappings()
		if dupKey, ok := duplicateServiceMappingKey(m.ServiceMappingArray); ok {
			return nil, &errs.ValidationError{Reason: fmt.Sprintf("duplicate service mapping key %+v", dupKey)}
		}
	}

	if flags&FlagSnapshotMappings != 0 && wire.SnapshotMappings != nil {
		for _, xm := range wire.SnapshotMappings.Mapping {
			if filter != nil {
				if filter.Container != "" && xm.Container != filter.Container {
					continue
				}
				if filter.Component != "" && xm.Component != filter.Component {
					continue
				}
			}
			if xm.Component == "" || xm.Container == "" || xm.Target == "" || xm.Service == "" {
				return nil, &errs.ValidationError{Reason: "snapshot mapping missing required field"}
			}
			snm := &SnapshotMapping{
				Component:                  xm.Component,
				Container:                  xm.Container,
				Target:                     xm.Target,
				Service:                    xm.Service,
				ContainerProvidedByService: xm.ContainerProvidedByService,
			}
			m.SnapshotMappingArray = append(m.SnapshotMappingArray, snm)
		}
		m.SortSnapshotMappings()
		if dupKey, ok := duplicateSnapshotMappingKey(m.SnapshotMappingArray); ok {
			return nil, &errs.ValidationError{Reason: fmt.Sprintf("duplicate snapshot mapping key %+v", dupKey)}
		}
	}

	if flags&FlagDistribution != 0 && wire.Profiles != nil {
		for _, p := range wire.Profiles.Profile {
			if _, dup := m.ProfileMappingTable[p.Name]; dup {
				return nil, &errs.ValidationError{Reason: fmt.Sprintf("duplicate profile mapping key %q", p.Name)}
			}
			m.ProfileMappingTable[p.Name] = p.Value
		}
	}

	return m, nil
}

func duplicateServiceMappingKey(s []*ServiceMapping) (ServiceMappingKey, bool) {
	for i := 1; i < len(s); i++ {
		if s[i].Key() == s[i-1].Key() {
			return s[i].Key(), true
		}
	}
	return ServiceMappingKey{}, false
}

func duplicateSnapshotMappingKey(s []*SnapshotMapping) (SnapshotMappingKey, bool) {
	for i := 1; i < len(s); i++ {
		if s[i].Key() == s[i-1].Key() {
			return s[i].Key(), true
		}
	}
	return SnapshotMappingKey{}, false
}

func decodeTarget(xt xmlTarget) (*Target, error) {
	if xt.ClientInterface == "" {
		return nil, &errs.ValidationError{Reason: fmt.Sprintf("target %q: clientInterface is required", xt.Name)}
	}
	if xt.TargetProperty == "" {
		return nil, &errs.ValidationError{Reason: fmt.Sprintf("target %q: targetProperty is required", xt.Name)}
	}
	numCores := xt.NumOfCores
	if numCores == 0 {
		numCores = 1
	}
	t := &Target{
		System:          xt.System,
		ClientInterface: xt.ClientInterface,
		TargetProperty:  xt.TargetProperty,
		NumOfCores:      numCores,
		AvailableCores:  numCores,
		Properties:      make(map[string]PropertyValue),
		Containers:      make(map[string]map[string]string),
	}
	for _, p := range xt.Property {
		t.Properties[p.Name] = decodeProperty(p)
	}
	if _, ok := t.Properties[t.TargetProperty]; !ok {
		return nil, &errs.ValidationError{Reason: fmt.Sprintf("target %q: properties[%s] must be set", xt.Name, t.TargetProperty)}
	}
	if xt.Containers != nil {
		for _, c := range xt.Containers.Container {
			t.Containers[c.Name] = flattenStringProperties(c.Property)
		}
	}
	return t, nil
}

func decodeService(xs xmlService) (*ManifestService, error) {
	if xs.Name == "" || xs.Pkg == "" || xs.Type == "" {
		return nil, &errs.ValidationError{Reason: "service: name, pkg and type are all required"}
	}
	svc := &ManifestService{
		Name:               xs.Name,
		Pkg:                xs.Pkg,
		Type:               xs.Type,
		ProvidesContainers: make(map[string]map[string]string),
	}
	if xs.DependsOn != nil {
		for _, d := range xs.DependsOn.Mapping {
			svc.DependsOn = append(svc.DependsOn, InterDependencyMapping(d))
		}
	}
	if xs.ConnectsTo != nil {
		deps := make([]InterDependencyMapping, 0, len(xs.ConnectsTo.Mapping))
		for _, d := range xs.ConnectsTo.Mapping {
			deps = append(deps, InterDependencyMapping(d))
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i].Less(deps[j]) })
		svc.ConnectsTo = deps
	}
	if xs.ProvidesContainers != nil {
		for _, c := range xs.ProvidesContainers.Container {
			svc.ProvidesContainers[c.Name] = flattenStringProperties(c.Property)
		}
	}
	return svc, nil
}

func decodeProperty(p xmlProperty) PropertyValue {
	switch p.Type {
	case "int":
		var v int64
		fmt.Sscanf(p.Value, "%d", &v)
		return PropertyValue{Kind: KindInt, Int: v}
	case "float":
		var v float64
		fmt.Sscanf(p.Value, "%g", &v)
		return PropertyValue{Kind: KindFloat, Float: v}
	case "bool":
		return PropertyValue{Kind: KindBool, Bool: p.Value == "true"}
	case "list":
		// list values are whitespace-separated string leaves, consistent
		// with the container-env KEY=VALUE assembly's expectations.
		var items []PropertyValue
		var cur []rune
		flush := func() {
			if len(cur) > 0 {
				items = append(items, PropertyValue{Kind: KindString, Str: string(cur)})
				cur = cur[:0]
			}
		}
		for _, r := range p.Value {
			if r == ' ' || r == '\t' || r == '\n' {
				flush()
			} else {
				cur = append(cur, r)
			}
		}
		flush()
		return PropertyValue{Kind: KindList, List: items}
	case "attrs":
		attrs := make(map[string]PropertyValue, len(p.Property))
		for _, child := range p.Property {
			attrs[child.Name] = decodeProperty(child)
		}
		return PropertyValue{Kind: KindAttrs, Attrs: attrs}
	default:
		return PropertyValue{Kind: KindString, Str: p.Value}
	}
}

func flattenStringProperties(props []xmlProperty) map[string]string {
	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p.Name] = p.Value
	}
	return out
}

package manifest

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

// WriteXML renders m back into the canonical manifest XML form (§6),
// indented two spaces per level to match the style the coordinator reads.
func WriteXML(w io.Writer, m *Manifest) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	wire := xmlManifest{}

	if len(m.TargetsTable) > 0 {
		wire.Infrastructure = &xmlInfrastructure{Target: encodeTargets(m.TargetsTable)}
	}
	if len(m.Services) > 0 {
		wire.Services = &xmlServices{Service: encodeServices(m.Services)}
	}
	if len(m.ServiceMappingArray) > 0 {
		wire.ServiceMappings = &xmlServiceMappings{Mapping: encodeServiceMappings(m.ServiceMappingArray)}
	}
	if len(m.SnapshotMappingArray) > 0 {
		wire.SnapshotMappings = &xmlSnapshotMappings{Mapping: encodeSnapshotMappings(m.SnapshotMappingArray)}
	}
	if len(m.ProfileMappingTable) > 0 {
		wire.Profiles = &xmlProfiles{Profile: encodeProfiles(m.ProfileMappingTable)}
	}

	if err := enc.Encode(wire); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeTargets(table map[string]*Target) []xmlTarget {
	keys := sortedKeys(table)
	out := make([]xmlTarget, 0, len(keys))
	for _, k := range keys {
		t := table[k]
		xt := xmlTarget{
			Name:            k,
			System:          t.System,
			ClientInterface: t.ClientInterface,
			TargetProperty:  t.TargetProperty,
			NumOfCores:      t.NumOfCores,
			Property:        encodeProperties(t.Properties),
		}
		if len(t.Containers) > 0 {
			xt.Containers = &xmlContainersBlock{Container: encodeContainers(t.Containers)}
		}
		out = append(out, xt)
	}
	return out
}

func encodeServices(table map[string]*ManifestService) []xmlService {
	keys := sortedKeys(table)
	out := make([]xmlService, 0, len(keys))
	for _, k := range keys {
		svc := table[k]
		xs := xmlService{Name: svc.Name, Pkg: svc.Pkg, Type: svc.Type}
		if len(svc.DependsOn) > 0 {
			xs.DependsOn = &xmlMappingList{Mapping: encodeInterDeps(svc.DependsOn)}
		}
		if len(svc.ConnectsTo) > 0 {
			xs.ConnectsTo = &xmlMappingList{Mapping: encodeInterDeps(svc.ConnectsTo)}
		}
		if len(svc.ProvidesContainers) > 0 {
			xs.ProvidesContainers = &xmlContainersBlock{Container: encodeContainers(svc.ProvidesContainers)}
		}
		out = append(out, xs)
	}
	return out
}

func encodeInterDeps(deps []InterDependencyMapping) []xmlInterDependencyMapping {
	out := make([]xmlInterDependencyMapping, len(deps))
	for i, d := range deps {
		out[i] = xmlInterDependencyMapping(d)
	}
	return out
}

func encodeContainers(containers map[string]map[string]string) []xmlContainer {
	keys := sortedKeys(containers)
	out := make([]xmlContainer, 0, len(keys))
	for _, k := range keys {
		out = append(out, xmlContainer{Name: k, Property: encodeStringProperties(containers[k])})
	}
	return out
}

func encodeServiceMappings(sms []*ServiceMapping) []xmlServiceMapping {
	out := make([]xmlServiceMapping, len(sms))
	for i, sm := range sms {
		out[i] = xmlServiceMapping{
			Service:                    sm.Service,
			Container:                  sm.Container,
			Target:                     sm.Target,
			ContainerProvidedByService: sm.ContainerProvidedByService,
		}
	}
	return out
}

func encodeSnapshotMappings(snms []*SnapshotMapping) []xmlSnapshotMapping {
	out := make([]xmlSnapshotMapping, len(snms))
	for i, snm := range snms {
		out[i] = xmlSnapshotMapping{
			Component:                  snm.Component,
			Container:                  snm.Container,
			Target:                     snm.Target,
			Service:                    snm.Service,
			ContainerProvidedByService: snm.ContainerProvidedByService,
		}
	}
	return out
}

func encodeProfiles(table map[string]string) []xmlProfile {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]xmlProfile, 0, len(keys))
	for _, k := range keys {
		out = append(out, xmlProfile{Name: k, Value: table[k]})
	}
	return out
}

func encodeProperties(props map[string]PropertyValue) []xmlProperty {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]xmlProperty, 0, len(keys))
	for _, k := range keys {
		out = append(out, propertyToXML(k, props[k]))
	}
	return out
}

// propertyToXML renders one PropertyValue as an xmlProperty, recursing into
// nested <property> children for KindAttrs (§6, §8) since its value can't
// be expressed as chardata the way every other kind's can.
func propertyToXML(name string, v PropertyValue) xmlProperty {
	xp := xmlProperty{Name: name, Type: propertyTypeName(v.Kind)}
	if v.Kind == KindAttrs {
		xp.Property = encodeProperties(v.Attrs)
		return xp
	}
	xp.Value = v.String()
	return xp
}

func encodeStringProperties(props map[string]string) []xmlProperty {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]xmlProperty, 0, len(keys))
	for _, k := range keys {
		out = append(out, xmlProperty{Name: k, Type: "string", Value: props[k]})
	}
	return out
}

func propertyTypeName(k PropertyKind) string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindAttrs:
		return "attrs"
	default:
		return "string"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quoteNixString escapes a string for the Nix attribute-set surface form
// print_nix emits (nixprint.go); only the Nix printer calls it.
func quoteNixString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\', '$':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	out = append(out, '"')
	return string(out)
}

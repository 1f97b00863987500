package manifest

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteNix renders m as a Nix attribute set in the declarative surface form
// documented in §6 (used by `convert-manifest` when the output path ends in
// `.nix`, mainly as a
// human-readable export since the coordinator itself only ever reads the
// XML form back in). No third-party library in the pack emits Nix
// expressions, so this is a small hand-rolled pretty-printer producing
// `name = value;` bindings, nested attribute sets and lists, matching the
// indentation style nixpkgs authors write by hand.
func WriteNix(w io.Writer, m *Manifest) error {
	b := &nixBuilder{w: w}
	b.writeln(0, "{")
	if len(m.TargetsTable) > 0 {
		b.writeInfrastructure(m.TargetsTable)
	}
	if len(m.Services) > 0 {
		b.writeServices(m.Services)
	}
	if len(m.ServiceMappingArray) > 0 {
		b.writeServiceMappings(m.ServiceMappingArray)
	}
	if len(m.SnapshotMappingArray) > 0 {
		b.writeSnapshotMappings(m.SnapshotMappingArray)
	}
	if len(m.ProfileMappingTable) > 0 {
		b.writeProfiles(m.ProfileMappingTable)
	}
	b.writeln(0, "}")
	return b.err
}

type nixBuilder struct {
	w   io.Writer
	err error
}

func (b *nixBuilder) writeln(indent int, format string, args ...interface{}) {
	if b.err != nil {
		return
	}
	line := strings.Repeat("  ", indent) + fmt.Sprintf(format, args...) + "\n"
	_, b.err = io.WriteString(b.w, line)
}

func (b *nixBuilder) writeInfrastructure(targets map[string]*Target) {
	b.writeln(1, "infrastructure = {")
	for _, key := range sortedKeys(targets) {
		t := targets[key]
		b.writeln(2, "%s = {", nixIdent(key))
		if t.System != "" {
			b.writeln(3, "system = %s;", quoteNixString(t.System))
		}
		b.writeln(3, "clientInterface = %s;", quoteNixString(t.ClientInterface))
		b.writeln(3, "targetProperty = %s;", quoteNixString(t.TargetProperty))
		b.writeln(3, "numOfCores = %d;", t.NumOfCores)
		b.writePropertiesInline(3, t.Properties)
		if len(t.Containers) > 0 {
			b.writeln(3, "containers = {")
			for _, cname := range sortedKeys(t.Containers) {
				b.writeln(4, "%s = {", nixIdent(cname))
				b.writeStringPropsInline(5, t.Containers[cname])
				b.writeln(4, "};")
			}
			b.writeln(3, "};")
		}
		b.writeln(2, "};")
	}
	b.writeln(1, "};")
}

func (b *nixBuilder) writeServices(services map[string]*ManifestService) {
	b.writeln(1, "services = {")
	for _, key := range sortedKeys(services) {
		svc := services[key]
		b.writeln(2, "%s = {", nixIdent(key))
		b.writeln(3, "pkg = %s;", quoteNixString(svc.Pkg))
		b.writeln(3, "type = %s;", quoteNixString(svc.Type))
		if len(svc.DependsOn) > 0 {
			b.writeln(3, "dependsOn = [")
			for _, d := range svc.DependsOn {
				b.writeln(4, "{ service = %s; container = %s; target = %s; }",
					quoteNixString(d.Service), quoteNixString(d.Container), quoteNixString(d.Target))
			}
			b.writeln(3, "];")
		}
		if len(svc.ConnectsTo) > 0 {
			b.writeln(3, "connectsTo = [")
			for _, d := range svc.ConnectsTo {
				b.writeln(4, "{ service = %s; container = %s; target = %s; }",
					quoteNixString(d.Service), quoteNixString(d.Container), quoteNixString(d.Target))
			}
			b.writeln(3, "];")
		}
		if len(svc.ProvidesContainers) > 0 {
			b.writeln(3, "providesContainers = {")
			for _, cname := range sortedKeys(svc.ProvidesContainers) {
				b.writeln(4, "%s = {", nixIdent(cname))
				b.writeStringPropsInline(5, svc.ProvidesContainers[cname])
				b.writeln(4, "};")
			}
			b.writeln(3, "};")
		}
		b.writeln(2, "};")
	}
	b.writeln(1, "};")
}

func (b *nixBuilder) writeServiceMappings(sms []*ServiceMapping) {
	b.writeln(1, "serviceMappings = [")
	for _, sm := range sms {
		if sm.ContainerProvidedByService != "" {
			b.writeln(2, "{ service = %s; container = %s; target = %s; containerProvidedByService = %s; }",
				quoteNixString(sm.Service), quoteNixString(sm.Container), quoteNixString(sm.Target), quoteNixString(sm.ContainerProvidedByService))
		} else {
			b.writeln(2, "{ service = %s; container = %s; target = %s; }",
				quoteNixString(sm.Service), quoteNixString(sm.Container), quoteNixString(sm.Target))
		}
	}
	b.writeln(1, "];")
}

func (b *nixBuilder) writeSnapshotMappings(snms []*SnapshotMapping) {
	b.writeln(1, "snapshotMappings = [")
	for _, snm := range snms {
		b.writeln(2, "{ component = %s; container = %s; target = %s; service = %s; }",
			quoteNixString(snm.Component), quoteNixString(snm.Container), quoteNixString(snm.Target), quoteNixString(snm.Service))
	}
	b.writeln(1, "];")
}

func (b *nixBuilder) writeProfiles(profiles map[string]string) {
	b.writeln(1, "profiles = {")
	for _, name := range sortedKeys(profiles) {
		b.writeln(2, "%s = %s;", nixIdent(name), quoteNixString(profiles[name]))
	}
	b.writeln(1, "};")
}

func (b *nixBuilder) writePropertiesInline(indent int, props map[string]PropertyValue) {
	if len(props) == 0 {
		return
	}
	b.writeln(indent, "properties = {")
	for _, k := range sortedKeys(props) {
		b.writeln(indent+1, "%s = %s;", nixIdent(k), nixValue(props[k]))
	}
	b.writeln(indent, "};")
}

func (b *nixBuilder) writeStringPropsInline(indent int, props map[string]string) {
	for _, k := range sortedKeys(props) {
		b.writeln(indent, "%s = %s;", nixIdent(k), quoteNixString(props[k]))
	}
}

// nixValue renders a PropertyValue as a Nix expression.
func nixValue(v PropertyValue) string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = nixValue(e)
		}
		return "[ " + strings.Join(parts, " ") + " ]"
	case KindAttrs:
		keys := make([]string, 0, len(v.Attrs))
		for k := range v.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %s;", nixIdent(k), nixValue(v.Attrs[k]))
		}
		return "{ " + strings.Join(parts, " ") + " }"
	default:
		return quoteNixString(v.Str)
	}
}

// nixIdent quotes an attribute name if it isn't a bare Nix identifier.
func nixIdent(name string) string {
	if name == "" {
		return quoteNixString(name)
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return quoteNixString(name)
		}
		if i > 0 && !isAlpha && !isDigit && r != '-' && r != '\'' {
			return quoteNixString(name)
		}
	}
	return name
}

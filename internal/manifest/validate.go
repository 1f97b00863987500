package manifest

import (
	"fmt"

	"coordinator/internal/errs"
)

// Validate enforces the structural invariants from §3: every target/service
// reference resolves, containers exist where claimed, required fields are
// set, and keys are unique (duplicate-key detection already happened at
// parse time by construction of the maps).
func Validate(m *Manifest) error {
	for key, t := range m.TargetsTable {
		if t.NumOfCores < 1 {
			return &errs.ValidationError{Reason: fmt.Sprintf("target %q: num_of_cores must be >= 1", key)}
		}
		if t.TargetProperty == "" {
			return &errs.ValidationError{Reason: fmt.Sprintf("target %q: target_property must be set", key)}
		}
		if t.ClientInterface == "" {
			return &errs.ValidationError{Reason: fmt.Sprintf("target %q: client_interface must be set", key)}
		}
		if _, ok := t.Properties[t.TargetProperty]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("target %q: properties[%s] (target_property) must exist", key, t.TargetProperty)}
		}
	}

	for name, svc := range m.Services {
		if svc.Name == "" || svc.Pkg == "" || svc.Type == "" {
			return &errs.ValidationError{Reason: fmt.Sprintf("service %q: name, pkg and type must all be set", name)}
		}
		for _, dep := range svc.DependsOn {
			if err := validateInterDependency(m, dep); err != nil {
				return err
			}
		}
		for _, dep := range svc.ConnectsTo {
			if err := validateInterDependency(m, dep); err != nil {
				return err
			}
		}
	}

	for _, sm := range m.ServiceMappingArray {
		if sm.Service == "" || sm.Container == "" || sm.Target == "" {
			return &errs.ValidationError{Reason: "service mapping: service, container and target must all be set"}
		}
		if _, ok := m.Services[sm.Service]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("service mapping references unknown service %q", sm.Service)}
		}
		if _, ok := m.TargetsTable[sm.Target]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("service mapping references unknown target %q", sm.Target)}
		}
		if err := validateContainerProvider(m, sm.Container, sm.Target, sm.ContainerProvidedByService); err != nil {
			return err
		}
	}

	for _, snm := range m.SnapshotMappingArray {
		if snm.Component == "" || snm.Container == "" || snm.Target == "" || snm.Service == "" {
			return &errs.ValidationError{Reason: "snapshot mapping: component, container, target and service must all be set"}
		}
		if _, ok := m.Services[snm.Service]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("snapshot mapping references unknown service %q", snm.Service)}
		}
		if _, ok := m.TargetsTable[snm.Target]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("snapshot mapping references unknown target %q", snm.Target)}
		}
	}

	return nil
}

func validateInterDependency(m *Manifest, dep InterDependencyMapping) error {
	if dep.Service == "" || dep.Container == "" || dep.Target == "" {
		return &errs.ValidationError{Reason: "inter-dependency mapping: service, container and target must all be set"}
	}
	if _, ok := m.Services[dep.Service]; !ok {
		return &errs.ValidationError{Reason: fmt.Sprintf("inter-dependency mapping references unknown service %q", dep.Service)}
	}
	return nil
}

// validateContainerProvider enforces: the container used by a service
// mapping must exist either in target.containers or in
// services[container_provided_by_service].provides_containers (§3).
func validateContainerProvider(m *Manifest, container, targetKey, providerService string) error {
	if providerService != "" {
		provider, ok := m.Services[providerService]
		if !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("container_provided_by_service references unknown service %q", providerService)}
		}
		if _, ok := provider.ProvidesContainers[container]; !ok {
			return &errs.ValidationError{Reason: fmt.Sprintf("service %q does not provide container %q", providerService, container)}
		}
		return nil
	}

	t, ok := m.TargetsTable[targetKey]
	if !ok {
		return &errs.ValidationError{Reason: fmt.Sprintf("unknown target %q", targetKey)}
	}
	if _, ok := t.Containers[container]; !ok {
		return &errs.ValidationError{Reason: fmt.Sprintf("target %q has no container %q and none was provided by a service", targetKey, container)}
	}
	return nil
}

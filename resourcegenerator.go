// resourcegenerator.go
package qdispatch

// ResourceGenerator turns an Executor's self-reported descriptors into
// QuantumResource records, grounded on the original's resource-generator
// collaborator (§4.2): the core never builds resources directly, it asks
// each configured executor what it has.
type ResourceGenerator interface {
	Generate(name string, executor Executor) []*QuantumResource
}

// DefaultResourceGenerator is the module's sole ResourceGenerator
// implementation: it just wraps each descriptor 1:1 into a resource.
type DefaultResourceGenerator struct{}

func NewDefaultResourceGenerator() *DefaultResourceGenerator {
	return &DefaultResourceGenerator{}
}

func (g *DefaultResourceGenerator) Generate(originPilot string, executor Executor) []*QuantumResource {
	descriptors := executor.AvailableResources()
	resources := make([]*QuantumResource, 0, len(descriptors))
	for _, d := range descriptors {
		resources = append(resources, NewQuantumResource(
			d.Name, d.QubitCount, d.GateSet, d.ErrorRate, d.NoiseLevel, d.Config, originPilot,
		))
	}
	return resources
}

// resource.go
package qdispatch

import "strings"

// QuantumResource describes one backend available to the Selector. Every
// field except name is fixed by NewQuantumResource; Catalogue.Add may
// prefix name with the origin pilot when names collide.
type QuantumResource struct {
	name          string
	qubitCount    int
	gateSet       map[string]struct{}
	errorRate     *float64 // nil means "unknown; treat as 0"
	noiseLevel    float64
	quantumConfig map[string]any
	originPilot   string
}

// NewQuantumResource constructs an immutable resource record. gates are
// normalized the same way QuantumTask gate sets are, so suitability
// comparisons never have to special-case casing or the cnot/cx alias.
func NewQuantumResource(name string, qubitCount int, gates []string, errorRate *float64, noiseLevel float64, config map[string]any, originPilot string) *QuantumResource {
	gateSet := make(map[string]struct{}, len(gates))
	for _, g := range gates {
		gateSet[normalizeGateName(g)] = struct{}{}
	}

	return &QuantumResource{
		name:          name,
		qubitCount:    qubitCount,
		gateSet:       gateSet,
		errorRate:     errorRate,
		noiseLevel:    noiseLevel,
		quantumConfig: config,
		originPilot:   originPilot,
	}
}

func (r *QuantumResource) Name() string { return r.name }

func (r *QuantumResource) QubitCount() int { return r.qubitCount }

func (r *QuantumResource) Config() map[string]any { return r.quantumConfig }

// ErrorRate returns the resource's error rate, treating "unknown" as 0 per
// the data model note in §3.
func (r *QuantumResource) ErrorRate() float64 {
	if r.errorRate == nil {
		return 0
	}
	return *r.errorRate
}

// Fidelity is the derived 1 − error-rate figure the scoring strategies
// minimize against.
func (r *QuantumResource) Fidelity() float64 {
	return 1 - r.ErrorRate()
}

// suitableFor implements §3 invariant 5: qubit count covers the task's
// requirement and the task's gate set is a subset of the resource's.
func (r *QuantumResource) suitableFor(qt *QuantumTask) bool {
	if r.qubitCount < qt.NumQubits {
		return false
	}
	return qt.gateSetSubsetOf(r.gateSet)
}

// Catalogue is the Selector's immutable-after-assembly map of resources,
// keyed by name with insertion order preserved so round-robin and
// tie-breaking are deterministic (§3 invariant 1, §8 law 5).
type Catalogue struct {
	byName map[string]*QuantumResource
	order  []string

	// seenBare and unprefixed track, per bare (pre-prefix) resource name,
	// whether it has been claimed before and — if so — which catalogue
	// key currently holds it unprefixed, so a later collision can rename
	// that first holder too rather than leaving it bare.
	seenBare   map[string]bool
	unprefixed map[string]string
}

func NewCatalogue() *Catalogue {
	return &Catalogue{
		byName:     make(map[string]*QuantumResource),
		seenBare:   make(map[string]bool),
		unprefixed: make(map[string]string),
	}
}

// Add inserts a resource under the catalogue-wide uniqueness rule from §3
// invariant 1 and §8 law 2: when a second pilot contributes the same bare
// name, BOTH the earlier and the newer resource end up prefixed with
// their own origin-pilot (`P1_r`, `P2_r`) — neither silently keeps the
// bare name, and neither overwrites the other, however many pilots
// eventually collide on the same bare name.
func (c *Catalogue) Add(r *QuantumResource) {
	bare := r.name

	if holderKey, stillBare := c.unprefixed[bare]; stillBare {
		holder := c.byName[holderKey]
		delete(c.byName, holderKey)
		renamed := holder.originPilot + "_" + bare
		holder.name = renamed
		c.byName[renamed] = holder
		c.renameInOrder(holderKey, renamed)
		delete(c.unprefixed, bare)
	}

	if c.seenBare[bare] {
		name := r.originPilot + "_" + bare
		r.name = name
		c.byName[name] = r
		c.order = append(c.order, name)
		return
	}

	c.byName[bare] = r
	c.order = append(c.order, bare)
	c.seenBare[bare] = true
	c.unprefixed[bare] = bare
}

func (c *Catalogue) renameInOrder(oldName, newName string) {
	for i, n := range c.order {
		if n == oldName {
			c.order[i] = newName
			return
		}
	}
}

func (c *Catalogue) Get(name string) (*QuantumResource, bool) {
	r, ok := c.byName[name]
	return r, ok
}

func (c *Catalogue) Len() int { return len(c.order) }

// Ordered returns resources in catalogue insertion order.
func (c *Catalogue) Ordered() []*QuantumResource {
	out := make([]*QuantumResource, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Suitable filters the catalogue down to resources satisfying §3
// invariant 5 for the given task, preserving insertion order.
func (c *Catalogue) Suitable(qt *QuantumTask) []*QuantumResource {
	var out []*QuantumResource
	for _, r := range c.Ordered() {
		if r.suitableFor(qt) {
			out = append(out, r)
		}
	}
	return out
}

// familyFromName derives an executor family tag by substring match against
// the registered family names, defaulting to qiskit (§4.4).
func familyFromName(name string, families []string) string {
	lower := strings.ToLower(name)
	for _, f := range families {
		if strings.Contains(lower, f) {
			return f
		}
	}
	return "qiskit"
}

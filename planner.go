// planner.go
package qdispatch

import (
	"fmt"
	"math"
	"sort"
)

// GraphNode is one qubit line in a circuit-interaction graph.
type GraphNode struct {
	Name string
}

// GraphEdge is one candidate cut: a two-qubit gate connecting u and v.
type GraphEdge struct {
	U, V  string
	Gate  string
	Theta float64 // only meaningful for parametric gates
}

// CutGraph is the normalized input to the planner (§4.6 "Normalization").
type CutGraph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// CircuitData is the opaque-circuit shape the planner also accepts: a
// sequence of (instruction, qubit indices) triples, mirroring a real
// circuit object's `.data` iterable.
type CircuitData struct {
	Instruction string
	Qubits      []int
	Theta       float64
}

// NewCutGraphFromData builds a CutGraph from a circuit's opaque
// instruction stream, emitting nodes q0..q_{n-1} and one edge per
// two-qubit gate, per §4.6 normalization rules.
func NewCutGraphFromData(data []CircuitData, numQubits int) *CutGraph {
	g := &CutGraph{}
	for i := 0; i < numQubits; i++ {
		g.Nodes = append(g.Nodes, GraphNode{Name: fmt.Sprintf("q%d", i)})
	}
	for _, d := range data {
		if len(d.Qubits) != 2 {
			continue
		}
		g.Edges = append(g.Edges, GraphEdge{
			U:     fmt.Sprintf("q%d", d.Qubits[0]),
			V:     fmt.Sprintf("q%d", d.Qubits[1]),
			Gate:  normalizeGateName(d.Instruction),
			Theta: d.Theta,
		})
	}
	return g
}

// fixedOverhead holds the non-parametric gate overheads from the fixed
// gate overhead table (§4.6).
var fixedOverhead = map[string]float64{
	"cx": 9, "cz": 9, "cy": 9, "ch": 9, "ecr": 9,
	"cs": 3 + 2*math.Sqrt2, "csdg": 3 + 2*math.Sqrt2, "csx": 3 + 2*math.Sqrt2,
	"iswap": 49, "dcx": 49,
}

var sinThetaGates = map[string]struct{}{"rzz": {}, "rxx": {}, "ryy": {}, "rzx": {}}
var halfSinThetaGates = map[string]struct{}{"crx": {}, "cry": {}, "crz": {}, "cphase": {}}

// gateOverhead returns the per-cut sampling-overhead multiplier for a
// gate, and false if the gate is unknown (and therefore non-cuttable).
func gateOverhead(gate string, theta float64) (float64, bool) {
	gate = normalizeGateName(gate)
	if w, ok := fixedOverhead[gate]; ok {
		return w, true
	}
	if _, ok := sinThetaGates[gate]; ok {
		return math.Pow(1+2*math.Abs(math.Sin(theta)), 2), true
	}
	if _, ok := halfSinThetaGates[gate]; ok {
		return math.Pow(1+2*math.Abs(math.Sin(theta/2)), 2), true
	}
	return 0, false
}

// cutCandidate is one still-available cut edge, cached with its overhead
// and log-cost so the refinement loop never recomputes them.
type cutCandidate struct {
	edge      GraphEdge
	overhead  float64
	cost      float64
	key       string
}

func candidateKey(e GraphEdge) string {
	u, v := e.U, e.V
	if u > v {
		u, v = v, u
	}
	return u + "|" + v + "|" + e.Gate + fmt.Sprintf("|%.6f", e.Theta)
}

// unionFind is a minimal index-based disjoint-set, local to one planner
// call (§9 design note: no cyclic references, index-based parent pointers).
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return true
}

// CutPlan is the planner's output (§3).
type CutPlan struct {
	NumberOfCuts     int
	SelectedCuts     []GraphEdge
	CutOverheads     []float64
	TotalOverhead    float64
	Fragments        [][]string
	QPUAssignment    map[int][]string
	ParallelismScore float64
	QualityScore     float64
	Notes            string
}

// PlannerOptions tunes the refinement loop's stopping and acceptance
// conditions. Zero-value numeric fields fall back to the documented
// defaults; a zero ActiveOnlyFilter (false) turns the filter off.
type PlannerOptions struct {
	MaxOverhead          float64 // 0 means unbounded
	CapacityTolerance    float64 // default 1.2
	EarlyTermFragmentMul int     // default 2 (stop at |fragments| >= mul*Q)
	EarlyTermOverhead    float64 // default 100
	ActiveOnlyFilter     bool    // default true; caller sets explicitly via NewPlannerOptions
}

func NewPlannerOptions() PlannerOptions {
	return PlannerOptions{
		CapacityTolerance:    1.2,
		EarlyTermFragmentMul: 2,
		EarlyTermOverhead:    100,
		ActiveOnlyFilter:     true,
	}
}

// PlanCuts runs the Circuit-Cut Planner (§4.6) against a normalized
// graph, a target QPU count, and optional per-QPU qubit capacities.
// capacities may be nil, in which case fragments are distributed
// round-robin across Q buckets instead of via capacity-aware assignment.
func PlanCuts(graph *CutGraph, qpus int, capacities []int, opts PlannerOptions) (*CutPlan, error) {
	if qpus < 1 {
		return nil, fmt.Errorf("qdispatch: qpus_count must be >= 1, got %d", qpus)
	}
	if opts.CapacityTolerance == 0 {
		opts.CapacityTolerance = 1.2
	}
	if opts.EarlyTermFragmentMul == 0 {
		opts.EarlyTermFragmentMul = 2
	}
	if opts.EarlyTermOverhead == 0 {
		opts.EarlyTermOverhead = 100
	}

	degree := make(map[string]int)
	for _, e := range graph.Edges {
		degree[e.U]++
		degree[e.V]++
	}

	var active []string
	for _, n := range graph.Nodes {
		if !opts.ActiveOnlyFilter || degree[n.Name] > 0 {
			active = append(active, n.Name)
		}
	}
	if len(active) == 0 {
		return trivialPlan(graph, qpus), nil
	}

	index := make(map[string]int, len(active))
	for i, name := range active {
		index[name] = i
	}

	seen := make(map[string]bool)
	var edges []GraphEdge
	var overheads []float64
	for _, e := range graph.Edges {
		if _, ok := index[e.U]; !ok {
			continue
		}
		if _, ok := index[e.V]; !ok {
			continue
		}
		w, ok := gateOverhead(e.Gate, e.Theta)
		if !ok {
			continue
		}
		key := candidateKey(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, e)
		overheads = append(overheads, w)
	}

	uf := newUnionFind(len(active))
	for _, e := range edges {
		uf.union(index[e.U], index[e.V])
	}

	componentEdges := make(map[int][]int) // component root -> edge indices
	for i, e := range edges {
		root := uf.find(index[e.U])
		componentEdges[root] = append(componentEdges[root], i)
	}

	var candidates []cutCandidate
	for _, idxs := range componentEdges {
		candidates = append(candidates, mstCandidates(active, index, edges, overheads, idxs)...)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].cost < candidates[j].cost })

	disabled := make(map[string]bool)
	var selected []GraphEdge
	var selectedOverheads []float64
	totalOverhead := 1.0

	fragmentsOf := func() [][]string {
		full := newUnionFind(len(active))
		for _, e := range edges {
			if disabled[candidateKey(e)] {
				continue
			}
			full.union(index[e.U], index[e.V])
		}
		groups := make(map[int][]string)
		for _, name := range active {
			root := full.find(index[name])
			groups[root] = append(groups[root], name)
		}
		var frags [][]string
		for _, g := range groups {
			sort.Strings(g)
			frags = append(frags, g)
		}
		sort.Slice(frags, func(i, j int) bool { return frags[i][0] < frags[j][0] })
		return frags
	}

	parallelismScore := func(f int) float64 {
		if f <= qpus {
			return float64(f) / float64(qpus)
		}
		return 1 + 0.5*float64(f-qpus)/float64(qpus)
	}

	feasible := func(frags [][]string) (map[int][]string, bool) {
		return assignFragments(frags, qpus, capacities, opts.CapacityTolerance)
	}

	qualityScore := func(pscore, overhead float64) float64 {
		ln := math.Log(math.Max(overhead, 1))
		if ln == 0 {
			return pscore
		}
		return pscore / ln
	}

	var best *CutPlan
	initFrags := fragmentsOf()
	if assignment, ok := feasible(initFrags); ok {
		pscore := parallelismScore(len(initFrags))
		best = &CutPlan{
			Fragments:        initFrags,
			QPUAssignment:    assignment,
			TotalOverhead:    1.0,
			ParallelismScore: pscore,
			QualityScore:     qualityScore(pscore, 1.0),
		}
	}

	for len(candidates) > 0 {
		c := candidates[0]
		candidates = candidates[1:]
		if disabled[c.key] {
			continue
		}
		if opts.MaxOverhead > 0 && totalOverhead*c.overhead > opts.MaxOverhead {
			continue
		}

		disabled[c.key] = true
		selected = append(selected, c.edge)
		selectedOverheads = append(selectedOverheads, c.overhead)
		totalOverhead *= c.overhead

		frags := fragmentsOf()
		if assignment, ok := feasible(frags); ok {
			pscore := parallelismScore(len(frags))
			q := qualityScore(pscore, totalOverhead)
			if best == nil || q > best.QualityScore {
				best = &CutPlan{
					NumberOfCuts:     len(selected),
					SelectedCuts:     append([]GraphEdge(nil), selected...),
					CutOverheads:     append([]float64(nil), selectedOverheads...),
					TotalOverhead:    totalOverhead,
					Fragments:        frags,
					QPUAssignment:    assignment,
					ParallelismScore: pscore,
					QualityScore:     q,
				}
			}
		}

		if len(frags) >= opts.EarlyTermFragmentMul*qpus && totalOverhead > opts.EarlyTermOverhead {
			break
		}

		fresh := mstCandidates(active, index, edges, overheads, componentEdges[uf.find(index[c.edge.U])])
		for _, fc := range fresh {
			if !disabled[fc.key] {
				candidates = append(candidates, fc)
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].cost < candidates[j].cost })
	}

	if best == nil {
		frags := fragmentsOf()
		return &CutPlan{
			NumberOfCuts:  len(selected),
			SelectedCuts:  selected,
			CutOverheads:  selectedOverheads,
			TotalOverhead: totalOverhead,
			Fragments:     frags,
			QPUAssignment: map[int][]string{},
			Notes:         "no candidate cut produced a capacity-feasible plan",
		}, nil
	}
	return best, nil
}

// trivialPlan handles circuits with no active (degree>0) qubits (S5): one
// fragment per qubit, all assigned to QPU 1 — no cut was needed because
// nothing interacts, not because everything fits in one fragment.
func trivialPlan(graph *CutGraph, qpus int) *CutPlan {
	var names []string
	for _, n := range graph.Nodes {
		names = append(names, n.Name)
	}

	fragments := make([][]string, len(names))
	for i, name := range names {
		fragments[i] = []string{name}
	}

	assignment := map[int][]string{1: names}
	return &CutPlan{
		TotalOverhead:    1.0,
		Fragments:        fragments,
		QPUAssignment:    assignment,
		ParallelismScore: 1.0 / float64(qpus),
		QualityScore:     1.0 / float64(qpus),
	}
}

// mstCandidates computes a minimum spanning tree over the given edge
// indices (restricted to one connected component), ordered by log-cost,
// per §4.6 step 4/5's "seed/refresh candidate cut set" rule.
func mstCandidates(active []string, index map[string]int, edges []GraphEdge, overheads []float64, edgeIdxs []int) []cutCandidate {
	sort.Slice(edgeIdxs, func(i, j int) bool {
		return math.Log(overheads[edgeIdxs[i]]) < math.Log(overheads[edgeIdxs[j]])
	})

	uf := newUnionFind(len(active))
	var out []cutCandidate
	for _, i := range edgeIdxs {
		e := edges[i]
		if uf.union(index[e.U], index[e.V]) {
			out = append(out, cutCandidate{
				edge:     e,
				overhead: overheads[i],
				cost:     math.Log(overheads[i]),
				key:      candidateKey(e),
			})
		}
	}
	return out
}

// assignFragments implements §4.6 step 7: capacity-aware greedy
// first-fit (largest fragments first) when capacities are supplied,
// else round-robin across Q buckets.
func assignFragments(frags [][]string, qpus int, capacities []int, tolerance float64) (map[int][]string, bool) {
	if len(capacities) == 0 {
		assignment := make(map[int][]string)
		for i, f := range frags {
			bucket := i%qpus + 1
			assignment[bucket] = append(assignment[bucket], f...)
		}
		return assignment, true
	}

	sorted := append([][]string(nil), frags...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	used := make([]int, len(capacities))
	assignment := make(map[int][]string)
	for _, f := range sorted {
		placed := false
		for i, capacity := range capacities {
			limit := int(math.Floor(float64(capacity) * tolerance))
			if used[i]+len(f) <= limit {
				used[i] += len(f)
				assignment[i] = append(assignment[i], f...)
				placed = true
				break
			}
		}
		if !placed {
			return nil, false
		}
	}
	return assignment, true
}

// Package navigation implements the algorithmic core over normalized node
// and reference tables: subtype closures, reference-type subsumption,
// multi-hop traversal and instance-declaration inheritance.
package navigation

import (
	"fmt"
	"math/bits"

	"github.com/graphforge/uanodeset/pkg/graph"
)

// MaxClosureRounds bounds the fixed-point squaring loop. The subtype
// relation is acyclic by OPC UA rules, so well-formed input converges in
// O(log diameter) rounds; malformed cyclic input hits the cap instead of
// looping forever.
const MaxClosureRounds = 64

// Pair is one (Src, Trg) edge of a closure result.
type Pair struct {
	Src graph.ID
	Trg graph.ID
}

// Closure is the strict transitive closure of a base relation, with the
// termination condition kept observable.
type Closure struct {
	Pairs      []Pair
	Rounds     int
	FixedPoint bool
}

// ClosureOptions configures the fixed-point iteration.
type ClosureOptions struct {
	MaxRounds int // 0 means MaxClosureRounds
}

type bitrow []uint64

func newBitrow(n int) bitrow { return make(bitrow, (n+63)/64) }

func (r bitrow) set(i int)      { r[i/64] |= 1 << (i % 64) }
func (r bitrow) has(i int) bool { return r[i/64]&(1<<(i%64)) != 0 }

func (r bitrow) union(other bitrow) {
	for i, w := range other {
		r[i] |= w
	}
}

func (r bitrow) count() int {
	n := 0
	for _, w := range r {
		n += bits.OnesCount64(w)
	}
	return n
}

// TransitiveClosure computes the strict transitive closure of the edge list
// by boolean matrix squaring to a fixed point. The relation is represented
// as one bitset row per distinct id; each round replaces the matrix with its
// boolean square and compares the nonzero count against the previous round.
// Self-edges in the input are rejected.
func TransitiveClosure(edges []Pair, opts ClosureOptions) (*Closure, error) {
	maxRounds := opts.MaxRounds
	if maxRounds == 0 {
		maxRounds = MaxClosureRounds
	}

	for _, e := range edges {
		if e.Src == e.Trg {
			return nil, graph.NewError("TransitiveClosure").Node(e.Src).
				Context("self reference").Cause(graph.ErrSchema).Err()
		}
	}

	// Factorize the distinct ids to local dense indices, first seen first.
	local := make(map[graph.ID]int)
	var uniques []graph.ID
	intern := func(id graph.ID) int {
		if i, ok := local[id]; ok {
			return i
		}
		i := len(uniques)
		local[id] = i
		uniques = append(uniques, id)
		return i
	}
	for _, e := range edges {
		intern(e.Src)
	}
	for _, e := range edges {
		intern(e.Trg)
	}

	n := len(uniques)
	rows := make([]bitrow, n)
	for i := range rows {
		rows[i] = newBitrow(n)
		rows[i].set(i)
	}
	for _, e := range edges {
		rows[local[e.Src]].set(local[e.Trg])
	}

	count := 0
	for _, r := range rows {
		count += r.count()
	}

	result := &Closure{}
	for {
		if result.Rounds >= maxRounds {
			return result, graph.NewError("TransitiveClosure").Reference().
				Context(fmt.Sprintf("no fixed point after %d rounds", maxRounds)).
				Cause(graph.ErrClosureDiverged).Err()
		}
		result.Rounds++

		next := make([]bitrow, n)
		for i := range next {
			next[i] = newBitrow(n)
			row := rows[i]
			for w, word := range row {
				for word != 0 {
					j := w*64 + bits.TrailingZeros64(word)
					word &= word - 1
					next[i].union(rows[j])
				}
			}
		}
		rows = next

		nextCount := 0
		for _, r := range rows {
			nextCount += r.count()
		}
		if nextCount == count {
			result.FixedPoint = true
			break
		}
		count = nextCount
	}

	// Strict closure: the diagonal added for the iteration is not reported.
	for i := range rows {
		for j := 0; j < n; j++ {
			if i != j && rows[i].has(j) {
				result.Pairs = append(result.Pairs, Pair{Src: uniques[i], Trg: uniques[j]})
			}
		}
	}
	return result, nil
}

// TypingTransitiveReflexive computes the transitive-reflexive closure of the
// HasSubtype relation: the strict closure of all HasSubtype edges, unioned
// with the reflexive pair (x, x) for every id appearing anywhere in the
// reference table.
func TypingTransitiveReflexive(t *graph.Tables) ([]Pair, error) {
	hasSubtype, err := ResolveReferenceType(t, "HasSubtype")
	if err != nil {
		return nil, err
	}

	var edges []Pair
	for _, r := range t.References {
		if r.Type == hasSubtype {
			edges = append(edges, Pair{Src: r.Src, Trg: r.Trg})
		}
	}

	closure, err := TransitiveClosure(edges, ClosureOptions{})
	if err != nil {
		return nil, err
	}

	pairs := closure.Pairs
	seen := make(map[graph.ID]struct{})
	for _, r := range t.References {
		for _, id := range [2]graph.ID{r.Src, r.Trg} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				pairs = append(pairs, Pair{Src: id, Trg: id})
			}
		}
	}
	return pairs, nil
}

// TypePair is one row of a subtype or supertype relation.
type TypePair struct {
	Type    graph.ID
	Related graph.ID
}

// SubtypesOfNodes filters the transitive-reflexive subtype closure down to
// pairs whose supertype side is one of the given types. Related holds the
// subtype.
func SubtypesOfNodes(types []graph.ID, t *graph.Tables) ([]TypePair, error) {
	closure, err := TypingTransitiveReflexive(t)
	if err != nil {
		return nil, err
	}
	want := make(map[graph.ID]struct{}, len(types))
	for _, id := range types {
		want[id] = struct{}{}
	}
	var out []TypePair
	for _, p := range closure {
		if _, ok := want[p.Src]; ok {
			out = append(out, TypePair{Type: p.Src, Related: p.Trg})
		}
	}
	return out, nil
}

// SupertypesOfNodes filters the transitive-reflexive subtype closure down to
// pairs whose subtype side is one of the given types. Related holds the
// supertype.
func SupertypesOfNodes(types []graph.ID, t *graph.Tables) ([]TypePair, error) {
	closure, err := TypingTransitiveReflexive(t)
	if err != nil {
		return nil, err
	}
	want := make(map[graph.ID]struct{}, len(types))
	for _, id := range types {
		want[id] = struct{}{}
	}
	var out []TypePair
	for _, p := range closure {
		if _, ok := want[p.Trg]; ok {
			out = append(out, TypePair{Type: p.Trg, Related: p.Src})
		}
	}
	return out, nil
}

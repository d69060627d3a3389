package navigation

import "github.com/graphforge/uanodeset/pkg/graph"

// Direction selects which way FindRelatives walks the edge table.
type Direction uint8

const (
	// Descendant follows edges source to target.
	Descendant Direction = iota
	// Ancestor follows edges target to source.
	Ancestor
)

// FindRelativesOptions configures the multi-hop traversal.
type FindRelativesOptions struct {
	Direction Direction
	Cutoff    int  // 0 = unlimited
	KeepPaths bool // retain the full path from seed to reached node
}

// RelativeRow is one row of a FindRelatives result: a seed, a reached node
// and the hop count between them. With KeepPaths the full path is retained;
// without, Path holds only the seed and the reached node collapse into End.
type RelativeRow struct {
	SeedIndex int      // index into the seeds slice passed to FindRelatives
	Path      []graph.ID
	Hops      int
	End       graph.ID // deepest node reached on this row
}

// FindRelatives expands a frontier from the seed nodes one hop per
// iteration, joining the current endpoint against the edge table, until no
// new rows are produced or the cutoff is reached. One row is emitted per
// (seed, reached node, hop count) triple; the zero-hop seed rows are always
// included.
func FindRelatives(seeds []graph.ID, edges []graph.Reference, opts FindRelativesOptions) []RelativeRow {
	bySource := make(map[graph.ID][]graph.ID)
	for _, e := range edges {
		if opts.Direction == Ancestor {
			bySource[e.Trg] = append(bySource[e.Trg], e.Src)
		} else {
			bySource[e.Src] = append(bySource[e.Src], e.Trg)
		}
	}

	frontier := make([]RelativeRow, 0, len(seeds))
	for i, seed := range seeds {
		frontier = append(frontier, RelativeRow{
			SeedIndex: i,
			Path:      []graph.ID{seed},
			End:       seed,
		})
	}

	result := append([]RelativeRow(nil), frontier...)
	for hop := 1; len(frontier) > 0 && (opts.Cutoff == 0 || hop <= opts.Cutoff); hop++ {
		var next []RelativeRow
		for _, row := range frontier {
			for _, reached := range bySource[row.End] {
				var path []graph.ID
				if opts.KeepPaths {
					path = make([]graph.ID, len(row.Path), len(row.Path)+1)
					copy(path, row.Path)
					path = append(path, reached)
				} else {
					path = []graph.ID{row.Path[0]}
				}
				next = append(next, RelativeRow{
					SeedIndex: row.SeedIndex,
					Path:      path,
					Hops:      hop,
					End:       reached,
				})
			}
		}
		result = append(result, next...)
		frontier = next
	}
	return result
}

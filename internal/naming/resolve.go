package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// StemKey identifies a stem group: the parent directory plus the lowercased
// filename stem.
type StemKey struct {
	Dir  catalog.RelPath
	Stem string
}

// StemGroup holds the sibling sources that share a StemKey, in lexical order.
type StemGroup struct {
	Key     StemKey
	Members []catalog.RelPath
}

// Collision records an output name that more than one source would take.
// Owner keeps the name; Others were given a fresh one by Resolve and are
// listed for reporting.
type Collision struct {
	Output catalog.RelPath
	Owner  catalog.RelPath
	Others []catalog.RelPath
}

// Plan is the batch naming decision for a set of sources.
type Plan struct {
	Target     string
	Outputs    map[catalog.RelPath]catalog.RelPath
	Groups     []StemGroup
	Collisions []Collision
}

// GroupByStem partitions files into stem groups keyed by parent directory and
// lowercased stem. Groups are returned sorted by key; members by path.
func GroupByStem(files []catalog.RelPath) []StemGroup {
	index := make(map[StemKey]int, len(files))
	groups := make([]StemGroup, 0, len(files))
	for _, f := range files {
		stem, _ := catalog.SplitExt(f.Base())
		k := StemKey{Dir: f.Dir(), Stem: strings.ToLower(stem)}
		if i, ok := index[k]; ok {
			groups[i].Members = append(groups[i].Members, f)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, StemGroup{Key: k, Members: []catalog.RelPath{f}})
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Key, groups[j].Key
		if a.Dir != b.Dir {
			return catalog.Less(a.Dir, b.Dir)
		}
		return a.Stem < b.Stem
	})
	for i := range groups {
		catalog.SortPaths(groups[i].Members)
	}
	return groups
}

// Resolve computes the expected output for every source. It never touches
// the filesystem: the result depends only on files and target, so the same
// call predicts names before a conversion and verifies them afterwards.
//
// A source alone in its stem group maps to dir/stem.target. In a larger
// group every member maps to dir/stem_<ext>.target, ext being its lowercased
// original extension. When several members share an extension up to case,
// the first (lexically) keeps stem_<ext> and the following ones get
// stem_<ext>_1, stem_<ext>_2, ..., the same form Allocate falls back to.
//
// Sources from different groups can still land on one name, e.g. "a.jpg"
// and "a.gif" plan a_jpg.target while a literal "a_jpg.gif" plans the same.
// The lexically first source keeps it; every later one, in lexical order,
// gets the first name Allocate would pick for its own stem, treating every
// name planned so far as taken. The clash is recorded in Collisions, and
// Outputs stays one-to-one.
//
// Callers must leave out files already in the target format.
func Resolve(files []catalog.RelPath, target string) Plan {
	target = catalog.NormalizeTarget(target)
	plan := Plan{
		Target:  target,
		Outputs: make(map[catalog.RelPath]catalog.RelPath, len(files)),
		Groups:  GroupByStem(files),
	}

	for _, g := range plan.Groups {
		if len(g.Members) == 1 {
			src := g.Members[0]
			stem, _ := catalog.SplitExt(src.Base())
			plan.Outputs[src] = catalog.Join(src.Dir(), stem+"."+target)
			continue
		}
		seen := make(map[string]int, len(g.Members))
		for _, src := range g.Members {
			stem, ext := catalog.SplitExt(src.Base())
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			name := stem + "_" + ext
			if n := seen[ext]; n > 0 {
				name = fmt.Sprintf("%s_%d", name, n)
			}
			seen[ext]++
			plan.Outputs[src] = catalog.Join(src.Dir(), name+"."+target)
		}
	}

	plan.Collisions = findCollisions(plan.Outputs)
	plan.reassign()
	return plan
}

// reassign moves every collision loser to a name no other source plans.
func (p *Plan) reassign() {
	if len(p.Collisions) == 0 {
		return
	}
	var losers []catalog.RelPath
	for _, c := range p.Collisions {
		losers = append(losers, c.Others...)
	}
	catalog.SortPaths(losers)

	taken := p.Expected()
	for _, src := range losers {
		stem, ext := catalog.SplitExt(src.Base())
		base := string(catalog.Join(src.Dir(), stem))
		out := Allocate(base, ext, p.Target, func(cand string) bool {
			return taken.Has(catalog.RelPath(cand))
		})
		p.Outputs[src] = catalog.RelPath(out)
		taken.Add(catalog.RelPath(out))
	}
}

// ExpectedOutputs is Resolve reduced to its mapping.
func ExpectedOutputs(files []catalog.RelPath, target string) map[catalog.RelPath]catalog.RelPath {
	return Resolve(files, target).Outputs
}

// Expected returns the set of predicted output paths.
func (p Plan) Expected() catalog.Set {
	s := make(catalog.Set, len(p.Outputs))
	for _, out := range p.Outputs {
		s.Add(out)
	}
	return s
}

// Sources returns the planned sources in lexical order.
func (p Plan) Sources() []catalog.RelPath {
	out := make([]catalog.RelPath, 0, len(p.Outputs))
	for src := range p.Outputs {
		out = append(out, src)
	}
	catalog.SortPaths(out)
	return out
}

// Err returns a *CollisionError for the first collision, or nil. The clash
// is already settled in Outputs; Err only reports it.
func (p Plan) Err() error {
	if len(p.Collisions) == 0 {
		return nil
	}
	c := p.Collisions[0]
	return &CollisionError{Output: c.Output, Sources: append([]catalog.RelPath{c.Owner}, c.Others...)}
}

// findCollisions detects outputs claimed by more than one source. Such a
// clash can only come from different stem groups.
func findCollisions(outputs map[catalog.RelPath]catalog.RelPath) []Collision {
	bySink := make(map[catalog.RelPath][]catalog.RelPath, len(outputs))
	for src, out := range outputs {
		bySink[out] = append(bySink[out], src)
	}
	var out []Collision
	for sink, srcs := range bySink {
		if len(srcs) < 2 {
			continue
		}
		catalog.SortPaths(srcs)
		out = append(out, Collision{Output: sink, Owner: srcs[0], Others: srcs[1:]})
	}
	sort.Slice(out, func(i, j int) bool { return catalog.Less(out[i].Output, out[j].Output) })
	return out
}

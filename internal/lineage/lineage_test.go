package lineage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func produces(name string) OutCondition {
	return OutCondition{Name: name, Sign: SignProduced, Date: CurrentRunDate}
}

func waitsFor(name string) InCondition {
	return InCondition{Name: name, Date: CurrentRunDate}
}

// chainRecords builds EXTRACT -> LOAD -> REPORT plus an isolated AUDIT job.
func chainRecords() []Record {
	return []Record{
		{Name: "EXTRACT", Folder: "ETL", Out: []OutCondition{produces("EXTRACT_OK")}},
		{Name: "LOAD", Folder: "ETL", In: []InCondition{waitsFor("EXTRACT_OK")}, Out: []OutCondition{produces("LOAD_OK")}},
		{Name: "REPORT", Folder: "BI", In: []InCondition{waitsFor("LOAD_OK")}},
		{Name: "AUDIT", Folder: "OPS"},
	}
}

func TestParse_SingleEdge(t *testing.T) {
	records := []Record{
		{Name: "JOB1", Out: []OutCondition{{Name: "COND_A", Sign: "+", Date: "ODAT"}}},
		{Name: "JOB2", In: []InCondition{{Name: "COND_A", Date: "ODAT"}}},
	}

	jobs, edges, err := Parse(records)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, []Edge{{Source: "JOB1", Target: "JOB2", Condition: "COND_A"}}, edges)

	g := BuildGraph(jobs, edges)
	sub := Lineage(g, []string{"JOB2"}, Unbounded)
	assert.Equal(t, []string{"JOB1", "JOB2"}, sub.NodeIDs())
}

func TestParse_QualifierFiltering(t *testing.T) {
	tests := []struct {
		name      string
		out       OutCondition
		in        InCondition
		wantEdges int
	}{
		{"same cycle both sides", OutCondition{"C", "+", "ODAT"}, InCondition{"C", "ODAT"}, 1},
		{"deleted sign", OutCondition{"C", "-", "ODAT"}, InCondition{"C", "ODAT"}, 0},
		{"producer previous date", OutCondition{"C", "+", "PREV"}, InCondition{"C", "ODAT"}, 0},
		{"consumer previous date", OutCondition{"C", "+", "ODAT"}, InCondition{"C", "PREV"}, 0},
		{"consumer any date", OutCondition{"C", "+", "ODAT"}, InCondition{"C", "****"}, 0},
		{"name mismatch", OutCondition{"C", "+", "ODAT"}, InCondition{"D", "ODAT"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, edges, err := Parse([]Record{
				{Name: "A", Out: []OutCondition{tt.out}},
				{Name: "B", In: []InCondition{tt.in}},
			})
			require.NoError(t, err)
			assert.Len(t, edges, tt.wantEdges)
			assert.Len(t, jobs, 2)
		})
	}
}

func TestParse_ResolvedConditionLists(t *testing.T) {
	jobs, _, err := Parse([]Record{{
		Name:     "J",
		Folder:   "F",
		TaskType: "Job",
		Out:      []OutCondition{produces("OK"), {Name: "J_TRIGGER", Sign: "-", Date: "ODAT"}},
		In:       []InCondition{waitsFor("UP"), {Name: "J_TRIGGER", Date: "PREV"}},
	}})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, Job{Name: "J", Folder: "F", TaskType: "Job", In: []string{"UP"}, Out: []string{"OK"}}, jobs[0])
}

func TestParse_MultipleProducers(t *testing.T) {
	_, edges, err := Parse([]Record{
		{Name: "P1", Out: []OutCondition{produces("SHARED")}},
		{Name: "P2", Out: []OutCondition{produces("SHARED")}},
		{Name: "C", In: []InCondition{waitsFor("SHARED")}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Edge{
		{Source: "P1", Target: "C", Condition: "SHARED"},
		{Source: "P2", Target: "C", Condition: "SHARED"},
	}, edges)
}

func TestParse_MissingName(t *testing.T) {
	jobs, edges, err := Parse([]Record{{Name: "OK"}, {Name: "  "}})

	require.Error(t, err)
	assert.True(t, IsParseError(err))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "job #2")
	assert.Nil(t, jobs)
	assert.Nil(t, edges)
}

func TestBuildGraph_IsolatedAndMultiEdges(t *testing.T) {
	jobs, edges, err := Parse([]Record{
		{Name: "A", Out: []OutCondition{produces("X"), produces("Y")}},
		{Name: "B", In: []InCondition{waitsFor("X"), waitsFor("Y")}},
		{Name: "LONELY"},
	})
	require.NoError(t, err)

	g := BuildGraph(jobs, edges)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount(), "one edge per linking condition")
	assert.True(t, g.HasNode("LONELY"))
	assert.Empty(t, g.GetParents("LONELY"))
}

func TestBuildGraph_EdgeEndpointsAlwaysNodes(t *testing.T) {
	g := BuildGraph(nil, []Edge{{Source: "GHOST", Target: "B", Condition: "C"}})
	assert.True(t, g.HasNode("GHOST"))
	assert.True(t, g.HasNode("B"))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuildGraph_DuplicateNameFirstWins(t *testing.T) {
	g := BuildGraph([]Job{{Name: "J", Folder: "first"}, {Name: "J", Folder: "second"}}, nil)
	n, ok := g.GetNode("J")
	require.True(t, ok)
	assert.Equal(t, "first", n.Data.(Job).Folder)
}

func TestLineage_Chain(t *testing.T) {
	jobs, edges, err := Parse(chainRecords())
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	tests := []struct {
		name  string
		seeds []string
		depth int
		want  []string
	}{
		{"middle unbounded", []string{"LOAD"}, Unbounded, []string{"EXTRACT", "LOAD", "REPORT"}},
		{"head unbounded", []string{"EXTRACT"}, Unbounded, []string{"EXTRACT", "LOAD", "REPORT"}},
		{"head depth 1", []string{"EXTRACT"}, 1, []string{"EXTRACT", "LOAD"}},
		{"isolated", []string{"AUDIT"}, Unbounded, []string{"AUDIT"}},
		{"unknown seed skipped", []string{"NOPE", "REPORT"}, 1, []string{"LOAD", "REPORT"}},
		{"only unknown", []string{"NOPE"}, Unbounded, []string{}},
		{"empty seeds", nil, Unbounded, []string{}},
		{"whitespace trimmed", []string{" AUDIT "}, Unbounded, []string{"AUDIT"}},
		{"negative depth unbounded", []string{"REPORT"}, -3, []string{"EXTRACT", "LOAD", "REPORT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Lineage(g, tt.seeds, tt.depth)
			assert.Equal(t, tt.want, sub.NodeIDs())
		})
	}
}

func TestLineage_InducedEdgesOnly(t *testing.T) {
	jobs, edges, err := Parse(chainRecords())
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	sub := Lineage(g, []string{"EXTRACT"}, 1)
	require.Equal(t, 1, sub.EdgeCount())
	e := sub.Edges()[0]
	assert.Equal(t, "EXTRACT", e.From)
	assert.Equal(t, "LOAD", e.To)
	assert.Equal(t, "EXTRACT_OK", e.Label)
}

func TestLineage_NoEdgesReturnsKnownSeeds(t *testing.T) {
	var records []Record
	for i := 0; i < 6; i++ {
		records = append(records, Record{Name: fmt.Sprintf("J%d", i)})
	}
	jobs, edges, err := Parse(records)
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	sub := Lineage(g, []string{"J1", "J4", "MISSING"}, Unbounded)
	assert.Equal(t, []string{"J1", "J4"}, sub.NodeIDs())
	assert.Zero(t, sub.EdgeCount())
}

// diamondGraph returns a layered graph with a fan-out, fan-in and a side branch.
func diamondRecords() []Record {
	return []Record{
		{Name: "S", Out: []OutCondition{produces("S_OK")}},
		{Name: "A", In: []InCondition{waitsFor("S_OK")}, Out: []OutCondition{produces("A_OK")}},
		{Name: "B", In: []InCondition{waitsFor("S_OK")}, Out: []OutCondition{produces("B_OK")}},
		{Name: "M", In: []InCondition{waitsFor("A_OK"), waitsFor("B_OK")}, Out: []OutCondition{produces("M_OK")}},
		{Name: "T", In: []InCondition{waitsFor("M_OK")}},
		{Name: "SIDE", In: []InCondition{waitsFor("A_OK")}},
	}
}

func TestLineage_Properties(t *testing.T) {
	jobs, edges, err := Parse(diamondRecords())
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	seedSets := [][]string{{"S"}, {"M"}, {"SIDE", "T"}, {"A", "UNKNOWN"}, {"T"}}
	for _, seeds := range seedSets {
		t.Run(fmt.Sprint(seeds), func(t *testing.T) {
			full := Lineage(g, seeds, Unbounded)

			// contains every known seed
			for _, s := range seeds {
				if g.HasNode(s) {
					assert.True(t, full.HasNode(s), "seed %s missing", s)
				}
			}

			// idempotent
			again := Lineage(g, seeds, Unbounded)
			assert.Equal(t, full.NodeIDs(), again.NodeIDs())
			assert.Equal(t, full.Edges(), again.Edges())

			// monotone in depth, converging to the unbounded result
			prev := 0
			for depth := 1; depth <= 5; depth++ {
				n := Lineage(g, seeds, depth).NodeCount()
				assert.GreaterOrEqual(t, n, prev, "depth %d shrank the result", depth)
				prev = n
			}
			assert.Equal(t, full.NodeCount(), prev)
		})
	}
}

func TestLevels_Layered(t *testing.T) {
	jobs, edges, err := Parse(diamondRecords())
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	levels, acyclic := ComputeLevels(g)
	assert.True(t, acyclic)
	assert.Equal(t, map[string]int{"S": 0, "A": 1, "B": 1, "M": 2, "SIDE": 2, "T": 3}, levels)
}

func TestLevels_CycleFallback(t *testing.T) {
	jobs, edges, err := Parse([]Record{
		{Name: "A", In: []InCondition{waitsFor("B_OK")}, Out: []OutCondition{produces("A_OK")}},
		{Name: "B", In: []InCondition{waitsFor("A_OK")}, Out: []OutCondition{produces("B_OK")}},
	})
	require.NoError(t, err)
	g := BuildGraph(jobs, edges)

	assert.Equal(t, map[string]int{"A": 0, "B": 0}, Levels(g))
	_, acyclic := ComputeLevels(g)
	assert.False(t, acyclic)
}

func TestLevels_SelfLoopFallback(t *testing.T) {
	jobs, edges, err := Parse([]Record{
		{Name: "RERUN", In: []InCondition{waitsFor("RERUN_OK")}, Out: []OutCondition{produces("RERUN_OK")}},
		{Name: "OTHER"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"RERUN": 0, "OTHER": 0}, Levels(BuildGraph(jobs, edges)))
}

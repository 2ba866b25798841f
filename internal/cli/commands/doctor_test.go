package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/condgraph/internal/lineage"
	"github.com/leapstack-labs/condgraph/internal/testutil"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		checks   []HealthCheck
		jobCount int
		want     int
	}{
		{"no checks", nil, 10, 100},
		{"all passing", []HealthCheck{{Status: statusPass}}, 10, 100},
		{"warnings", []HealthCheck{{Status: statusWarn, IssueCount: 2}}, 10, 90},
		{"errors count double", []HealthCheck{{Status: statusError, IssueCount: 2}}, 10, 80},
		{"larger exports weigh less", []HealthCheck{{Status: statusWarn, IssueCount: 5}}, 200, 95},
		{"clamped at zero", []HealthCheck{{Status: statusError, IssueCount: 50}}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks, tt.jobCount))
		})
	}
}

func TestRunHealthChecks(t *testing.T) {
	produce := func(name string) lineage.OutCondition {
		return lineage.OutCondition{Name: name, Sign: lineage.SignProduced, Date: lineage.CurrentRunDate}
	}
	wait := func(name string) lineage.InCondition {
		return lineage.InCondition{Name: name, Date: lineage.CurrentRunDate}
	}

	snap, err := lineage.Load([]lineage.Record{
		{Name: "A", In: []lineage.InCondition{wait("MISSING"), wait("B-OK")}, Out: []lineage.OutCondition{produce("A-OK")}},
		{Name: "B", In: []lineage.InCondition{wait("A-OK")}, Out: []lineage.OutCondition{produce("B-OK"), produce("UNUSED")}},
		{Name: "LOOP", In: []lineage.InCondition{wait("LOOP-OK")}, Out: []lineage.OutCondition{produce("LOOP-OK")}},
		{Name: "DUP"},
		{Name: "DUP"},
	})
	require.NoError(t, err)

	byID := make(map[string]HealthCheck)
	for _, c := range runHealthChecks(snap) {
		byID[c.RuleID] = c
	}

	assert.Equal(t, statusError, byID["EC01"].Status)
	assert.Equal(t, []string{"MISSING (awaited by A)"}, byID["EC01"].Details)
	assert.Equal(t, []string{"UNUSED (produced by B)"}, byID["EC02"].Details)
	assert.Equal(t, 1, byID["EC03"].IssueCount)
	assert.Equal(t, []string{"DUP defined 2 times"}, byID["ES01"].Details)
	assert.Equal(t, statusError, byID["ES02"].Status)
	assert.Equal(t, []string{"DUP"}, byID["ES03"].Details)
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "EC01", IssueCount: 1},
		{RuleID: "EC02", IssueCount: 0},
		{RuleID: "ES02", IssueCount: 1},
		{RuleID: "XX99", IssueCount: 3},
	}
	recs := generateRecommendations(checks)
	assert.Len(t, recs, 2)
	assert.Equal(t, getRecommendation("EC01"), recs[0])
}

func TestDoctorCommand_JSON(t *testing.T) {
	out, _, err := runCommand(t, testutil.SampleExport, "output: json\n", NewDoctorCommand())
	require.NoError(t, err)

	var got DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Summary.Jobs)
	assert.Equal(t, 4, got.Summary.Folders)
	assert.Equal(t, 3, got.Summary.Levels)
	assert.True(t, got.Summary.Acyclic)
	assert.Equal(t, 1, got.IssueCount, "only AUDIT is isolated")
	assert.Equal(t, 95, got.Score)
}

func TestDoctorCommand_Markdown(t *testing.T) {
	out, _, err := runCommand(t, testutil.SampleExport, "", NewDoctorCommand())
	require.NoError(t, err)

	assert.Contains(t, out, "# Export Health Report")
	assert.Contains(t, out, "### Conditions")
	assert.Contains(t, out, "- **[WARN]** ES03: Jobs without any edge (1 issues)")
	assert.Contains(t, out, "**95/100**")
}

package ctmxml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/condgraph/internal/lineage"
)

const sampleExport = `<?xml version="1.0" encoding="utf-8"?>
<DEFTABLE>
  <FOLDER FOLDER_NAME="PAYROLL">
    <JOB JOBNAME="PAY_EXTRACT" PARENT_FOLDER="PAYROLL" TASKTYPE="Job">
      <OUTCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" SIGN="+"/>
    </JOB>
    <JOB JOBNAME="PAY_LOAD">
      <INCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" AND_OR="A"/>
      <INCOND NAME="HR_SYNC-OK" ODATE="PREV" AND_OR="A"/>
      <OUTCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" SIGN="-"/>
      <OUTCOND NAME="PAY_LOAD-OK" ODATE="ODAT" SIGN="+"/>
    </JOB>
  </FOLDER>
  <JOB JOBNAME="ORPHAN"/>
</DEFTABLE>
`

func TestDecode_Sample(t *testing.T) {
	records, err := Decode(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, lineage.Record{
		Name:     "PAY_EXTRACT",
		Folder:   "PAYROLL",
		TaskType: "Job",
		Out:      []lineage.OutCondition{{Name: "PAY_EXTRACT-OK", Sign: "+", Date: "ODAT"}},
		In:       []lineage.InCondition{},
	}, records[0])

	load := records[1]
	assert.Equal(t, "PAYROLL", load.Folder, "folder inherited from enclosing FOLDER")
	assert.Equal(t, lineage.DefaultTaskType, load.TaskType)
	assert.Len(t, load.In, 2)
	assert.Len(t, load.Out, 2)

	assert.Equal(t, lineage.DefaultFolder, records[2].Folder)
}

func TestDecode_FeedsEngine(t *testing.T) {
	records, err := Decode(strings.NewReader(sampleExport))
	require.NoError(t, err)

	jobs, edges, err := lineage.Parse(records)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.Equal(t, []lineage.Edge{{Source: "PAY_EXTRACT", Target: "PAY_LOAD", Condition: "PAY_EXTRACT-OK"}}, edges)
}

func TestDecode_BOM(t *testing.T) {
	doc := "\xEF\xBB\xBF" + `<DEFTABLE><JOB JOBNAME="A"/></DEFTABLE>`
	records, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Name)
}

func TestDecode_Latin1(t *testing.T) {
	// "CAFÉ" with É encoded as a single ISO-8859-1 byte
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<DEFTABLE><JOB JOBNAME=\"CAF\xC9\"/></DEFTABLE>"
	records, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CAFÉ", records[0].Name)
}

func TestDecode_NoJobs(t *testing.T) {
	records, err := Decode(strings.NewReader(`<DEFTABLE/>`))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not xml", "just some text"},
		{"unclosed", `<DEFTABLE><JOB JOBNAME="A">`},
		{"mismatched", `<DEFTABLE><JOB JOBNAME="A"></FOLDER></DEFTABLE>`},
		{"missing jobname", `<DEFTABLE><JOB PARENT_FOLDER="X"/></DEFTABLE>`},
		{"broken attribute", `<DEFTABLE><JOB JOBNAME=A/></DEFTABLE>`},
		{"second root", `<DEFTABLE><JOB JOBNAME="A"/></DEFTABLE><DEFTABLE><JOB JOBNAME="B"/></DEFTABLE>`},
		{"text after root", `<DEFTABLE><JOB JOBNAME="A"/></DEFTABLE>trailing junk`},
		{"text before root", `junk<DEFTABLE><JOB JOBNAME="A"/></DEFTABLE>`},
		{"job after job root", `<JOB JOBNAME="A"/><JOB JOBNAME="B"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, lineage.IsParseError(err), "got %T: %v", err, err)
			assert.Nil(t, records, "no partial result")
		})
	}
}

func TestDecode_TrailingWhitespaceAndComments(t *testing.T) {
	doc := "<DEFTABLE><JOB JOBNAME=\"A\"/></DEFTABLE>\n  <!-- exported -->\n"
	records, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDecode_JobAsRoot(t *testing.T) {
	records, err := Decode(strings.NewReader(`<JOB JOBNAME="SOLO"/>`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SOLO", records[0].Name)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o600))

	records, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.False(t, lineage.IsParseError(err), "a missing file is a load error, not a parse error")
}

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleExport is a small scheduler export: PAY_EXTRACT and HR_SYNC feed
// PAY_LOAD, which feeds PAY_REPORT. AUDIT has no conditions.
const SampleExport = `<?xml version="1.0" encoding="utf-8"?>
<DEFTABLE>
  <FOLDER FOLDER_NAME="PAYROLL">
    <JOB JOBNAME="PAY_EXTRACT" TASKTYPE="Job">
      <OUTCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" SIGN="+"/>
    </JOB>
    <JOB JOBNAME="PAY_LOAD" TASKTYPE="Job">
      <INCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" AND_OR="A"/>
      <INCOND NAME="HR_SYNC-OK" ODATE="ODAT" AND_OR="A"/>
      <OUTCOND NAME="PAY_EXTRACT-OK" ODATE="ODAT" SIGN="-"/>
      <OUTCOND NAME="PAY_LOAD-OK" ODATE="ODAT" SIGN="+"/>
    </JOB>
  </FOLDER>
  <FOLDER FOLDER_NAME="REPORTING">
    <JOB JOBNAME="PAY_REPORT">
      <INCOND NAME="PAY_LOAD-OK" ODATE="ODAT" AND_OR="A"/>
    </JOB>
  </FOLDER>
  <FOLDER FOLDER_NAME="HR">
    <JOB JOBNAME="HR_SYNC" TASKTYPE="Job">
      <OUTCOND NAME="HR_SYNC-OK" ODATE="ODAT" SIGN="+"/>
    </JOB>
  </FOLDER>
  <JOB JOBNAME="AUDIT"/>
</DEFTABLE>
`

// MalformedExport is not well-formed XML.
const MalformedExport = `<DEFTABLE><JOB JOBNAME="A"></DEFTABLE>`

// WriteExport writes content to export.xml in dir and returns its path.
func WriteExport(t testing.TB, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "export.xml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}
	return path
}

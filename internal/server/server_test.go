package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/condgraph/internal/config"
	"github.com/leapstack-labs/condgraph/internal/export"
	"github.com/leapstack-labs/condgraph/internal/testutil"
)

func newTestServer(t *testing.T, content string) (*Server, string) {
	t.Helper()
	path := testutil.WriteExport(t, t.TempDir(), content)
	s := New(Config{
		ExportFile:        path,
		MaxFullGraphNodes: 500,
		Theme:             config.DefaultThemes()["dark"],
		Logger:            testutil.NewTestLogger(t),
	})
	return s, path
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)
	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestJobsAndEdges(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)
	h := s.Handler()

	jobs := decode[JobsResponse](t, get(t, h, "/api/jobs"))
	assert.Equal(t, 5, jobs.Total)
	assert.Equal(t, "PAY_EXTRACT", jobs.Jobs[0].Name)

	edges := decode[EdgesResponse](t, get(t, h, "/api/edges"))
	assert.Equal(t, 3, edges.Total)

	rec := get(t, h, "/api/jobs/PAY_REPORT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"folder":"REPORTING"`)

	rec = get(t, h, "/api/jobs/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLevels(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)

	levels := decode[LevelsResponse](t, get(t, s.Handler(), "/api/levels"))
	assert.True(t, levels.Acyclic)
	assert.Equal(t, [][]string{
		{"AUDIT", "HR_SYNC", "PAY_EXTRACT"},
		{"PAY_LOAD"},
		{"PAY_REPORT"},
	}, levels.Levels)
}

func TestLineage(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)
	h := s.Handler()

	t.Run("seeds", func(t *testing.T) {
		v := decode[export.View](t, get(t, h, "/api/lineage?seed=PAY_REPORT&depth=1"))
		assert.Equal(t, "Filtered: 2 jobs (depth 1)", v.Status)
		assert.Len(t, v.Nodes, 2)
	})

	t.Run("comma seeds and regex", func(t *testing.T) {
		v := decode[export.View](t, get(t, h, "/api/lineage?seed=AUDIT,HR_SYNC&regex=^nothing"))
		assert.Equal(t, []string{"AUDIT", "HR_SYNC"}, v.Seeds)
	})

	t.Run("full view", func(t *testing.T) {
		v := decode[export.View](t, get(t, h, "/api/lineage"))
		assert.False(t, v.Filtered)
		assert.Len(t, v.Nodes, 5)
	})

	t.Run("dot", func(t *testing.T) {
		rec := get(t, h, "/api/lineage?seed=PAY_LOAD&format=dot")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/vnd.graphviz", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "digraph condgraph {"))
	})

	t.Run("bad depth", func(t *testing.T) {
		rec := get(t, h, "/api/lineage?depth=-2")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad format", func(t *testing.T) {
		rec := get(t, h, "/api/lineage?format=svg")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)

	st := decode[StatusResponse](t, get(t, s.Handler(), "/api/status"))
	assert.NotEmpty(t, st.LoadID)
	assert.Equal(t, 5, st.Jobs)
	assert.Equal(t, 3, st.Edges)
	assert.Empty(t, st.Error)
}

func TestInitialLoadFailureServesEmpty(t *testing.T) {
	s, _ := newTestServer(t, testutil.MalformedExport)
	h := s.Handler()

	jobs := decode[JobsResponse](t, get(t, h, "/api/jobs"))
	assert.Zero(t, jobs.Total)
	assert.NotNil(t, jobs.Jobs)

	st := decode[StatusResponse](t, get(t, h, "/api/status"))
	assert.Contains(t, st.Error, "could not be parsed")
}

func TestReload(t *testing.T) {
	s, path := newTestServer(t, testutil.SampleExport)
	firstID := s.current().id

	t.Run("failed reload keeps snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(testutil.MalformedExport), 0o600))
		require.Error(t, s.Reload())

		assert.Equal(t, firstID, s.current().id)
		assert.Len(t, s.Snapshot().Jobs, 5)
		st := decode[StatusResponse](t, get(t, s.Handler(), "/api/status"))
		assert.NotEmpty(t, st.Error)
	})

	t.Run("successful reload swaps snapshot", func(t *testing.T) {
		ch := s.notifier.Subscribe()
		defer s.notifier.Unsubscribe(ch)

		require.NoError(t, os.WriteFile(path, []byte(`<DEFTABLE><JOB JOBNAME="ONLY"/></DEFTABLE>`), 0o600))
		require.NoError(t, s.Reload())

		assert.NotEqual(t, firstID, s.current().id)
		assert.Equal(t, []string{"ONLY"}, s.Snapshot().JobNames())
		assert.Equal(t, s.current().id, <-ch)
		assert.NoError(t, s.current().lastErr)
	})
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := testutil.WriteExport(t, t.TempDir(), testutil.SampleExport)
	s := New(Config{ExportFile: path, Watch: true})
	firstID := s.current().id

	watcher, err := s.newWatcher()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watch(ctx, watcher) }()

	require.NoError(t, os.WriteFile(path, []byte(`<DEFTABLE><JOB JOBNAME="NEW"/></DEFTABLE>`), 0o600))

	assert.Eventually(t, func() bool {
		return s.current().id != firstID
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"NEW"}, s.Snapshot().JobNames())

	cancel()
	require.NoError(t, <-done)
}

func TestEventsStream(t *testing.T) {
	s, _ := newTestServer(t, testutil.SampleExport)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var data string
		for {
			line, err := reader.ReadString('\n')
			if err == io.EOF {
				return data
			}
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return data
			}
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	assert.Equal(t, s.current().id, readEvent())

	require.Eventually(t, func() bool { return s.notifier.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Reload())
	assert.Equal(t, s.current().id, readEvent())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	path := testutil.WriteExport(t, t.TempDir(), testutil.SampleExport)
	s := New(Config{ExportFile: path, Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

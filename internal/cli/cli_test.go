package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/dojang/internal/contenttest"
)

type env struct {
	dir     string
	data    string
	content string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{dir: dir, data: filepath.Join(dir, "data"), content: filepath.Join(dir, "content")}
	contenttest.Standard().Write(t, e.content)
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCommand()
	defer a.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--env-file", filepath.Join(e.dir, "absent.env"),
		"--data-dir", e.data,
		"--content-dir", e.content,
		"--log-level", "error",
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestSyncCommand(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "sync")
	assert.Contains(t, out, "belt_system")
	assert.Contains(t, out, "seed")
	assert.Contains(t, out, "full_replace")

	out = e.mustRun(t, "status")
	assert.Contains(t, out, "Last sync:")
	assert.NotContains(t, out, "never")
	assert.NotContains(t, out, "true")

	out = e.mustRun(t, "sync")
	assert.NotContains(t, out, "full_replace")

	out = e.mustRun(t, "sync", "--force")
	assert.Contains(t, out, "full_replace")
}

func TestProfileReviewAndExport(t *testing.T) {
	e := newEnv(t)

	id := strings.TrimSpace(e.mustRun(t, "profile", "create", "Student", "--belt", "10th Keup"))
	require.NotEmpty(t, id)
	assert.Contains(t, e.mustRun(t, "profile", "list"), "Student")

	out := e.mustRun(t, "review", id, "terminology", "10th_keup:basics:bow", "1")
	assert.Contains(t, out, "box 2")

	out = e.mustRun(t, "practice", id, "pattern", "Chon-Ji", "--steps", "4", "--duration", "1m")
	assert.Contains(t, out, "pattern/Chon-Ji")

	out = e.mustRun(t, "profile", "summary", id)
	assert.Contains(t, out, "Due for review: 0")

	path := filepath.Join(e.dir, "out", "student.xlsx")
	e.mustRun(t, "export", id, path)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	wb, err := excelize.OpenReader(f)
	require.NoError(t, err)
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Greater(t, len(rows), 2)

	csvPath := filepath.Join(e.dir, "out", "student.csv")
	e.mustRun(t, "export", id, csvPath)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "10th_keup:basics:bow")
}

func TestReviewRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	id := strings.TrimSpace(e.mustRun(t, "profile", "create", "Student"))

	_, err := e.run(t, "review", id, "kata", "x", "1")
	assert.ErrorContains(t, err, "unknown entity kind")

	_, err = e.run(t, "review", id, "terminology", "10th_keup:basics:bow", "1.5")
	assert.ErrorContains(t, err, "between 0 and 1")

	_, err = e.run(t, "review", id, "terminology", "10th_keup:basics:nothing", "1")
	assert.Error(t, err)
}

func TestResetCommand(t *testing.T) {
	e := newEnv(t)
	id := strings.TrimSpace(e.mustRun(t, "profile", "create", "Student"))

	out := e.mustRun(t, "reset")
	assert.Contains(t, out, "Store reset")

	out = e.mustRun(t, "profile", "list")
	assert.NotContains(t, out, id)
	assert.NotContains(t, out, "Student")
}

func TestSettingsClear(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "sync")

	assert.Contains(t, e.mustRun(t, "settings", "clear"), "Settings cleared")
	out := e.mustRun(t, "status")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "true")
}

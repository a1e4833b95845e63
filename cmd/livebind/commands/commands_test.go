package commands

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

func run(t *testing.T, command func([]string, io.Writer, io.Writer) error, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := command(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRenderCommand(t *testing.T) {
	stdout, stderr, err := run(t, Render, "-template", "testdata/list.html", "-data", "testdata/after.json", "-fragment")
	require.NoError(t, err)

	assert.Contains(t, stdout, `<h1 id="title" data-template="">SCORES</h1>`)
	assert.Contains(t, stdout, `<li value="100">ada</li><li value="80">grace</li>`)
	assert.Contains(t, stderr, "rendered 2 template(s)")
	assert.Contains(t, stderr, "2 entered")
}

func TestRenderCommandWholeDocument(t *testing.T) {
	stdout, _, err := run(t, Render, "-template", "testdata/list.html", "-data", "testdata/after.json", "-minify", "-quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "<title>livebind</title>")
	assert.Contains(t, stdout, ">ada</li>")
}

func TestRenderCommandTransitionFrame(t *testing.T) {
	stdout, _, err := run(t, Render,
		"-template", "testdata/list.html",
		"-previous", "testdata/before.yaml",
		"-data", "testdata/after.json",
		"-progress", "0.5", "-ease", "linear", "-fragment", "-quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, `<li value="50">ada</li><li value="40">grace</li>`)
	assert.Contains(t, stdout, ">SCORES<")
}

func TestRenderCommandFromSQLite(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "00001_items.sql"), []byte(`-- +goose Up
CREATE TABLE items (name TEXT, score INTEGER);
INSERT INTO items VALUES ('lin', 3), ('kay', 7);

-- +goose Down
DROP TABLE items;
`), 0o644))
	template := filepath.Join(dir, "rows.html")
	require.NoError(t, os.WriteFile(template, []byte(`<ol id="rows" data-repeat="{{.}}"><li data-attr-score="{{score}}">{{name}}</li></ol>`), 0o644))

	stdout, _, err := run(t, Render,
		"-template", template, "-select", "#rows",
		"-sqlite", filepath.Join(dir, "db.sqlite"),
		"-migrations", migrations,
		"-query", "SELECT name, score FROM items ORDER BY score DESC",
		"-fragment", "-quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, `<li score="7">kay</li><li score="3">lin</li>`)
}

func TestRenderCommandErrors(t *testing.T) {
	_, _, err := run(t, Render)
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = run(t, Render, "-template", "testdata/list.html", "-ease", "bounce")
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = run(t, Render, "-template", "testdata/list.html", "-sqlite", "x.db")
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = run(t, Render, "-template", "testdata/missing.html")
	assert.Error(t, err)

	_, _, err = run(t, Render, "-template", "testdata/list.html", "-select", "#nothing")
	assert.Error(t, err)

	_, _, err = run(t, Render, "-unknown")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestCheckCommand(t *testing.T) {
	stdout, _, err := run(t, Check, "-template", "testdata/list.html")
	require.NoError(t, err)
	assert.Contains(t, stdout, "h1#title")
	assert.Contains(t, stdout, "ul#list.items")
	assert.Contains(t, stdout, "2 template(s) compiled")

	stdout, _, err = run(t, Check, "-template", "testdata/broken.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Contains(t, stdout, "div#bad")
	assert.Contains(t, stdout, "MISSING_FILTER_NAME")
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")

	stdout, _, err := run(t, Migrate, "-migrations", migrations, "create", "people")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created migration")

	entries, err := os.ReadDir(migrations)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(migrations, entries[0].Name()), []byte(`-- +goose Up
CREATE TABLE people (name TEXT);

-- +goose Down
DROP TABLE people;
`), 0o644))

	db := filepath.Join(dir, "db.sqlite")
	_, _, err = run(t, Migrate, "-sqlite", db, "-migrations", migrations, "up")
	require.NoError(t, err)

	stdout, _, err = run(t, Migrate, "-sqlite", db, "-migrations", migrations, "version")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "version 0")

	_, _, err = run(t, Migrate, "-sqlite", db, "-migrations", migrations, "down")
	require.NoError(t, err)
	stdout, _, err = run(t, Migrate, "-sqlite", db, "-migrations", migrations, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "version 0")

	_, _, err = run(t, Migrate, "-sqlite", db, "sideways")
	assert.ErrorIs(t, err, ErrUsage)
	_, _, err = run(t, Migrate)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestPlayCommandFrames(t *testing.T) {
	stdout, _, err := run(t, Play,
		"-template", "testdata/list.html",
		"-from", "testdata/before.yaml",
		"-data", "testdata/after.json",
		"-ease", "linear", "-frames", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "-- 0.00")
	assert.Contains(t, stdout, "-- 0.50")
	assert.Contains(t, stdout, "-- 1.00")
	assert.Contains(t, stdout, `<li value="0">ada</li>`)
	assert.Contains(t, stdout, `<li value="50">ada</li>`)
	assert.Contains(t, stdout, `<li value="100">ada</li>`)
}

func TestPlayModel(t *testing.T) {
	tf := templateFlags{path: "testdata/list.html", selector: defaultSelector}
	p, err := tf.load(discard)
	require.NoError(t, err)

	tr := p.engine.Transition(100 * time.Millisecond)
	_, err = p.engine.RenderTransition(tr, p.templates, map[string]any{
		"title": "t",
		"items": []any{map[string]any{"name": "x", "score": 10}},
	})
	require.NoError(t, err)

	var model tea.Model = newPlayModel(p, tr, "demo", 10*time.Millisecond)
	require.NotNil(t, model.Init())

	start := time.Now()
	model, cmd := model.Update(frameMsg(start))
	assert.NotNil(t, cmd)
	assert.True(t, tr.Active())
	assert.Contains(t, model.View(), "demo")

	model, _ = model.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	model, cmd = model.Update(frameMsg(start.Add(200 * time.Millisecond)))
	require.NotNil(t, cmd)
	assert.True(t, tr.Done())

	view := model.View()
	assert.Contains(t, view, "x</li>")
	assert.NotContains(t, view, "q to quit")

	var quit tea.Model = newPlayModel(p, p.engine.Transition(time.Second), "other", time.Millisecond)
	quit, cmd = quit.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
	assert.True(t, quit.(playModel).quitting)
}

func TestDescribe(t *testing.T) {
	tf := templateFlags{path: "testdata/list.html", selector: "#list"}
	p, err := tf.load(discard)
	require.NoError(t, err)
	assert.Equal(t, "ul#list.items", describe(p.templates.Nodes[0]))
}

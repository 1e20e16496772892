package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/graph"
	"scriptgraph/internal/translate"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad_TOML(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "scriptgraph.toml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"graphs/**.graph.yaml"}, c.Sources)
	assert.Equal(t, "build/scripts", c.OutputDir)
	assert.Equal(t, ".scriptgraph/cache", c.CacheDir, "unset keys keep defaults")
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, "testdata", c.BaseDir("elsewhere"))

	d, err := c.Watch.Interval()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)

	opts, err := c.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, translate.FormatYAML, opts.Format)
	assert.True(t, opts.AddDebugInfo)
	assert.Equal(t, acm.RejectMultiple, opts.Exclusivity.Default)
	assert.Equal(t, acm.ExclusiveBranches, opts.Exclusivity.Rule(graph.NodeFunctionCall))
}

func TestLoad_YAML(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "scriptgraph.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gen", c.OutputDir)
	assert.Equal(t, "dracula", c.Print.Style)
	assert.False(t, c.Print.Color)
	assert.Equal(t, "json", c.Format)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(write(t, dir, "a.toml", "output_dir = \"x\"\nparalelism = 2\n"))
	assert.ErrorContains(t, err, "paralelism")

	_, err = Load(write(t, dir, "b.yaml", "outputdir: x\n"))
	assert.ErrorContains(t, err, "outputdir")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"format.toml":     `format = "xml"`,
		"parallel.toml":   `parallelism = -1`,
		"rule.toml":       "[exclusivity]\ndefault = \"maybe\"",
		"kind.toml":       "[exclusivity.kinds]\nteleport = \"reject\"",
		"level.toml":      "[log]\nlevel = \"loud\"",
		"debounce.toml":   "[watch]\ndebounce = \"soon\"",
		"compiler.toml":   `compiler_version = ">= 99"`,
		"constraint.toml": `compiler_version = "not a version"`,
		"syntax.toml":     `output_dir = `,
		"config.ini":      ``,
		"logformat.toml":  "[log]\nformat = \"xml\"",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, dir, name, content))
			assert.Error(t, err)
		})
	}
}

func TestFind_SearchesUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	want := write(t, root, "scriptgraph.yaml", "parallelism: 2\n")

	got, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	c, err := Resolve(nested, "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Parallelism)
	assert.Equal(t, root, c.BaseDir(nested))
}

func TestResolve_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); err == nil {
		t.Skip("a config file exists above the temp directory")
	}
	c, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, dir, c.BaseDir(dir))
}

func TestCheckCompiler(t *testing.T) {
	c := Default()
	assert.NoError(t, c.CheckCompiler(3))
	c.CompilerVersion = "^3.0"
	assert.NoError(t, c.CheckCompiler(3))
	assert.Error(t, c.CheckCompiler(4))
}

func TestLog_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "debug", Format: "json"}.NewLogger(&buf).Debug("shown", "job", "Main")
	assert.Contains(t, buf.String(), `"job":"Main"`)
}

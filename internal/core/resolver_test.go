package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestResolve_StrictlySorted(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"zebra.graph.json":  "z",
		"apple.graph.json":  "a",
		"mango.graph.json":  "m",
		"banana.graph.json": "b",
	})

	set, err := NewSourceResolver(dir).Resolve([]string{"*.graph.json"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := []string{"apple.graph.json", "banana.graph.json", "mango.graph.json", "zebra.graph.json"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if string(set.Sources[0].Content) != "a" {
		t.Errorf("content not read: %q", set.Sources[0].Content)
	}
}

func TestResolve_StarStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"top.graph.json":        "1",
		"nested/a.graph.json":   "2",
		"nested/b/c.graph.yaml": "3",
	})

	r := NewSourceResolver(dir)
	set, err := r.Resolve([]string{"*.graph.json"})
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Paths(); !reflect.DeepEqual(got, []string{"top.graph.json"}) {
		t.Fatalf("single star crossed directories: %v", got)
	}

	set, err = r.Resolve([]string{"**.graph.{json,yaml}"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"nested/a.graph.json", "nested/b/c.graph.yaml", "top.graph.json"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolve_DeduplicatesAndExcludes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.graph.json":         "a",
		"out/a.graph.json":     "copy",
		"b.graph.json":         "b",
		".hidden/x.graph.json": "x",
	})

	r := NewSourceResolver(dir, "out/**")
	set, err := r.Resolve([]string{"**.graph.json", "a.graph.json", "*.graph.json"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.graph.json", "b.graph.json"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolve_EmptyPatterns(t *testing.T) {
	set, err := NewSourceResolver(t.TempDir()).Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(set.Sources))
	}
}

func TestResolve_MissingLiteralFails(t *testing.T) {
	if _, err := NewSourceResolver(t.TempDir()).Resolve([]string{"missing.graph.json"}); err == nil {
		t.Fatal("expected error for a missing literal source")
	}
}

func TestMatch(t *testing.T) {
	r := NewSourceResolver("", "out/**")
	cases := map[string]bool{
		"a.graph.json":         true,
		"deep/er/a.graph.json": true,
		"out/a.graph.json":     false,
		"a.lua":                false,
	}
	for rel, want := range cases {
		got, err := r.Match([]string{"**.graph.json"}, rel)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Match(%q) = %v, want %v", rel, got, want)
		}
	}
}

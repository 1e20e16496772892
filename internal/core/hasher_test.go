package core

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func baseInput() FingerprintInput {
	return FingerprintInput{
		CompilerVersion: 3,
		GraphHash:       "0f1e2d",
		Options:         map[string]string{"format": "json", "debug": "true"},
		Dependencies:    map[string]Fingerprint{"Sqrt": "aa", "Clamp": "bb"},
	}
}

func TestComputeFingerprint_IdenticalInputsProduceSameFingerprint(t *testing.T) {
	h := NewFingerprinter()
	a := h.ComputeFingerprint(baseInput())
	b := h.ComputeFingerprint(baseInput())
	if a != b {
		t.Fatalf("fingerprints differ: %s != %s", a, b)
	}
}

func TestComputeFingerprint_EachComponentInvalidates(t *testing.T) {
	h := NewFingerprinter()
	base := h.ComputeFingerprint(baseInput())

	mutations := map[string]func(*FingerprintInput){
		"version":        func(in *FingerprintInput) { in.CompilerVersion = 4 },
		"graph":          func(in *FingerprintInput) { in.GraphHash = "0f1e2e" },
		"option value":   func(in *FingerprintInput) { in.Options["format"] = "yaml" },
		"option added":   func(in *FingerprintInput) { in.Options["exclusivity"] = "reject" },
		"dependency fp":  func(in *FingerprintInput) { in.Dependencies["Sqrt"] = "ab" },
		"dependency new": func(in *FingerprintInput) { in.Dependencies["Lerp"] = "cc" },
		"dependency gone": func(in *FingerprintInput) {
			delete(in.Dependencies, "Clamp")
		},
	}
	for name, mutate := range mutations {
		in := baseInput()
		mutate(&in)
		if got := h.ComputeFingerprint(in); got == base {
			t.Errorf("%s: fingerprint did not change", name)
		}
	}
}

func TestComputeFingerprint_MapOrderDoesNotMatter(t *testing.T) {
	h := NewFingerprinter()
	a := h.ComputeFingerprint(baseInput())
	for i := 0; i < 20; i++ {
		in := FingerprintInput{
			CompilerVersion: 3,
			GraphHash:       "0f1e2d",
			Options:         map[string]string{"debug": "true", "format": "json"},
			Dependencies:    map[string]Fingerprint{"Clamp": "bb", "Sqrt": "aa"},
		}
		if b := h.ComputeFingerprint(in); a != b {
			t.Fatalf("iteration %d: fingerprint depends on map order", i)
		}
	}
}

func TestComputeFingerprint_FieldsAreUnambiguous(t *testing.T) {
	h := NewFingerprinter()
	a := h.ComputeFingerprint(FingerprintInput{Options: map[string]string{"ab": "c"}})
	b := h.ComputeFingerprint(FingerprintInput{Options: map[string]string{"a": "bc"}})
	if a == b {
		t.Fatal("key/value boundary is ambiguous")
	}
}

func TestComputeFingerprint_NilMapsHandled(t *testing.T) {
	h := NewFingerprinter()
	a := h.ComputeFingerprint(FingerprintInput{GraphHash: "x"})
	b := h.ComputeFingerprint(FingerprintInput{GraphHash: "x", Options: map[string]string{}, Dependencies: map[string]Fingerprint{}})
	if a != b {
		t.Fatal("nil and empty maps should hash the same")
	}
}

func TestComputeFingerprint_Format(t *testing.T) {
	fp := NewFingerprinter().ComputeFingerprint(baseInput())
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(fp.String()) {
		t.Fatalf("unexpected fingerprint format: %q", fp)
	}
	if len(fp.Short()) != 12 {
		t.Fatalf("short form should be 12 digits, got %q", fp.Short())
	}
}

func TestQuickHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.graph.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := QuickHashFile(path)
	if err != nil {
		t.Fatalf("QuickHashFile: %v", err)
	}
	if got != QuickHash([]byte(`{"a":1}`)) {
		t.Fatal("file hash differs from content hash")
	}
	if QuickHash([]byte(`{"a":2}`)) == got {
		t.Fatal("different content hashed equal")
	}
	if _, err := QuickHashFile(filepath.Join(t.TempDir(), "missing")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

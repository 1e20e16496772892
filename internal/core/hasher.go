package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"slices"
	"strconv"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/maps"
)

// Fingerprint identifies the output of a compile job. Equal fingerprints
// mean byte-identical artifacts.
type Fingerprint string

// String returns the hex form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Short returns the first twelve hex digits, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Fingerprinter computes job fingerprints.
//
// Every component is length-prefixed and maps are hashed in key order, so
// the result never depends on declaration or iteration order.
type Fingerprinter struct{}

// NewFingerprinter creates a Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// FingerprintInput is everything a fingerprint covers.
type FingerprintInput struct {
	CompilerVersion int

	// GraphHash is the structural hash of the graph being compiled.
	GraphHash string

	Options map[string]string

	// Dependencies maps each called graph to its own fingerprint.
	Dependencies map[string]Fingerprint
}

// ComputeFingerprint hashes, in order:
//  1. Compiler version
//  2. Graph structural hash
//  3. Options sorted by key
//  4. Dependencies sorted by name, each with its fingerprint
func (h *Fingerprinter) ComputeFingerprint(input FingerprintInput) Fingerprint {
	hasher := sha256.New()

	writeField := func(data []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		hasher.Write(length[:])
		hasher.Write(data)
	}
	writeCount := func(n int) {
		writeField([]byte(strconv.Itoa(n)))
	}

	writeCount(input.CompilerVersion)
	writeField([]byte(input.GraphHash))

	keys := maps.Keys(input.Options)
	slices.Sort(keys)
	writeCount(len(keys))
	for _, k := range keys {
		writeField([]byte(k))
		writeField([]byte(input.Options[k]))
	}

	deps := maps.Keys(input.Dependencies)
	slices.Sort(deps)
	writeCount(len(deps))
	for _, d := range deps {
		writeField([]byte(d))
		writeField([]byte(input.Dependencies[d]))
	}

	return Fingerprint(hex.EncodeToString(hasher.Sum(nil)))
}

// QuickHash is a fast non-cryptographic content hash, used to tell whether
// a watched file actually changed before paying for a full rebuild.
func QuickHash(content []byte) uint64 {
	return xxh3.Hash(content)
}

// QuickHashFile returns the QuickHash of a file's content.
func QuickHashFile(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return QuickHash(b), nil
}

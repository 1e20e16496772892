package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// ComputeHash computes a stable, deterministic structural hash of the graph.
//
// The hash is computed from the normalized JSON representation of the graph
// object only. Metadata and schema_version are excluded.
//
// The hash is stable across:
//   - Different JSON/YAML formatting
//   - Different node, variable and connection ordering in the source
//   - Metadata changes
//
// The hash changes when any node, slot, variable or connection changes.
func ComputeHash(g *Graph) (string, error) {
	sum, err := ComputeHashBytes(g)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}

// ComputeHashBytes returns the raw SHA-256 structural hash.
func ComputeHashBytes(g *Graph) ([32]byte, error) {
	normalized := g.Normalized()

	// encoding/json sorts map keys, so properties hash canonically.
	data, err := json.Marshal(normalized)
	if err != nil {
		return [32]byte{}, &ParseError{Msg: "failed to serialize graph for hashing", Err: err}
	}
	return sha256.Sum256(data), nil
}

// Fingerprint combines a compiler version with the structural hash. Two
// sources with the same fingerprint compile to identical artifacts.
func Fingerprint(version int, g *Graph) (string, error) {
	structural, err := ComputeHashBytes(g)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	writeField := func(data []byte) {
		length := uint64(len(data))
		h.Write([]byte{
			byte(length >> 56), byte(length >> 48), byte(length >> 40), byte(length >> 32),
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		})
		h.Write(data)
	}
	writeField([]byte(strconv.Itoa(version)))
	writeField(structural[:])
	return hex.EncodeToString(h.Sum(nil)), nil
}

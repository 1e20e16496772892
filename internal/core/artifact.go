package core

import "sort"

// Artifact is one file a compile job writes, named relative to the output
// directory.
type Artifact struct {
	Path    string
	Content []byte
}

// ArtifactSet holds the artifacts of one job sorted by Path.
type ArtifactSet struct {
	Artifacts []Artifact
}

// NewArtifactSet sorts a copy of artifacts by path.
func NewArtifactSet(artifacts []Artifact) *ArtifactSet {
	out := make([]Artifact, len(artifacts))
	copy(out, artifacts)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return &ArtifactSet{Artifacts: out}
}

// Paths returns the artifact paths in order.
func (s *ArtifactSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		out = append(out, a.Path)
	}
	return out
}

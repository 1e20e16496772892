package core

// Source is a resolved graph document. Only its content contributes to
// identity; file metadata is never read.
type Source struct {
	// Path is slash-separated and relative to the resolver's base directory.
	Path string

	Content []byte
}

// SourceSet is the sorted, duplicate-free result of resolving source
// patterns.
type SourceSet struct {
	Sources []Source
}

// Paths returns the source paths in order.
func (s *SourceSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		out = append(out, src.Path)
	}
	return out
}

package dag

import "scriptgraph/internal/core"

// GraphHash is the stable identity of a JobGraph.
type GraphHash string

// Edge is a dependency: From must finish before To starts.
type Edge struct {
	From string
	To   string
}

// JobNode is a job in canonical position.
type JobNode struct {
	Name string

	// Job carries the fingerprint computed for it by NewJobGraph.
	Job core.Job

	canonicalIndex int
}

// CanonicalIndex returns the node's position in canonical order.
func (n *JobNode) CanonicalIndex() int { return n.canonicalIndex }

// Fingerprint returns the job fingerprint.
func (n *JobNode) Fingerprint() core.Fingerprint { return n.Job.Fingerprint }

func (h GraphHash) String() string { return string(h) }

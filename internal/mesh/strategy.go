package mesh

import "sort"

// Metrics is the last link quality sample reported by a node.
type Metrics struct {
	LatencyMs  float64
	UploadMbps float64
}

// NodeInfo is the read-only view of a node handed to a Strategy.
type NodeInfo struct {
	Parent   string
	Children int
	Seq      uint64
}

// Snapshot is the read-only view of a tree handed to a Strategy.
type Snapshot struct {
	Root        string
	MaxChildren int
	Nodes       map[string]NodeInfo
}

// Strategy picks a parent for a node. metrics holds only nodes that have
// reported a sample; candidates are attached nodes with spare capacity,
// ordered by join sequence. Returning ok=false makes the tree fall back to
// the root.
type Strategy interface {
	SelectParent(snap Snapshot, metrics map[string]Metrics, candidates []string) (parent string, ok bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(snap Snapshot, metrics map[string]Metrics, candidates []string) (string, bool)

// SelectParent calls f.
func (f StrategyFunc) SelectParent(snap Snapshot, metrics map[string]Metrics, candidates []string) (string, bool) {
	return f(snap, metrics, candidates)
}

// Greedy is the default strategy. A non-root node that reported no upload
// capacity is never chosen. Without any samples it fills the root first and
// then the earliest joined node. With samples it prefers measured nodes with
// the lowest latency, then the most upload per child slot.
type Greedy struct{}

// SelectParent implements Strategy.
func (Greedy) SelectParent(snap Snapshot, metrics map[string]Metrics, candidates []string) (string, bool) {
	candidates = canRelay(snap, metrics, candidates)
	if len(candidates) == 0 {
		return "", false
	}

	sampled := false
	for _, id := range candidates {
		if _, ok := metrics[id]; ok {
			sampled = true
			break
		}
	}

	if !sampled {
		for _, id := range candidates {
			if id == snap.Root {
				return id, true
			}
		}
		return earliest(snap, candidates), true
	}

	ordered := make([]string, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return better(snap, metrics, ordered[i], ordered[j])
	})
	return ordered[0], true
}

func better(snap Snapshot, metrics map[string]Metrics, a, b string) bool {
	ma, okA := metrics[a]
	mb, okB := metrics[b]
	if okA != okB {
		return okA
	}
	if okA {
		if ma.LatencyMs != mb.LatencyMs {
			return ma.LatencyMs < mb.LatencyMs
		}
		sa := ma.UploadMbps / float64(snap.Nodes[a].Children+1)
		sb := mb.UploadMbps / float64(snap.Nodes[b].Children+1)
		if sa != sb {
			return sa > sb
		}
	}
	return snap.Nodes[a].Seq < snap.Nodes[b].Seq
}

func earliest(snap Snapshot, candidates []string) string {
	best := candidates[0]
	for _, id := range candidates[1:] {
		if snap.Nodes[id].Seq < snap.Nodes[best].Seq {
			best = id
		}
	}
	return best
}

// canRelay drops non-root candidates whose last sample shows no upload.
func canRelay(snap Snapshot, metrics map[string]Metrics, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if m, ok := metrics[id]; ok && id != snap.Root && m.UploadMbps <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

package nodepool

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/stats"
)

// snapshotNode is the on-disk shape of one pre-configured node
// (spec.md §6 "Persisted state": nodeId, templateId, parameters, inUse,
// createdAt: ISO-8601).
type snapshotNode struct {
	NodeID     string            `json:"nodeId"`
	TemplateID string            `json:"templateId"`
	Parameters map[string]string `json:"parameters"`
	InUse      bool              `json:"inUse"`
	CreatedAt  string            `json:"createdAt"`
}

type snapshot struct {
	Version string         `json:"version"`
	Total   int            `json:"total"`
	Nodes   []snapshotNode `json:"nodes"`
}

// SaveSnapshot writes every pre-configured node to path, atomically
// (write to a temp file, then rename), matching the write discipline
// sysconfig.Store.Save uses for its own JSON tree.
func (p *Pool) SaveSnapshot(path string) error {
	const op = "nodepool.SaveSnapshot"
	p.mu.RLock()
	snap := snapshot{Version: "1.0", Total: len(p.nodes)}
	for _, n := range p.nodes {
		snap.Nodes = append(snap.Nodes, snapshotNode{
			NodeID:     n.NodeID,
			TemplateID: n.TemplateID,
			Parameters: n.Parameters,
			InUse:      n.InUse,
			CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	p.mu.RUnlock()

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return coreerr.Wrap(op, coreerr.Internal, "marshal node pool snapshot", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "create node pool snapshot dir", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "write node pool snapshot", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "rename node pool snapshot", err)
	}
	return nil
}

// LoadSnapshot restores pre-configured nodes from path. A missing file
// is not an error — the pool simply starts with none. Templates must
// already be registered (via SeedDefaults) before calling this.
func (p *Pool) LoadSnapshot(path string) error {
	const op = "nodepool.LoadSnapshot"
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "read node pool snapshot", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return coreerr.Wrap(op, coreerr.TransientIO, "parse node pool snapshot", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range snap.Nodes {
		createdAt, err := time.Parse(time.RFC3339, n.CreatedAt)
		if err != nil {
			createdAt = time.Now()
		}
		p.nodes[n.NodeID] = PreConfiguredNode{
			NodeID:     n.NodeID,
			TemplateID: n.TemplateID,
			Parameters: n.Parameters,
			InUse:      n.InUse,
			CreatedAt:  createdAt,
		}
	}
	stats.RecordNodePoolSize(len(p.nodes))
	return nil
}

package breakdown

import (
	"strings"

	"github.com/yungbote/breakdown-backend/internal/types"
)

// Consolidate assigns parents from dotted level labels: a node with level
// "2.2.1" and no parent is attached to the node whose level is exactly "2.2",
// if one exists. This is the only mechanism that builds hierarchy across
// regions, since extraction only ever sees one region's evidence. The parent
// assignment is recorded as a warning, not as inference; the input slice is
// never mutated.
func Consolidate(nodes []types.Node) []types.Node {
	byLevel := map[string]types.Node{}
	for _, n := range nodes {
		if n.Level != "" {
			byLevel[n.Level] = n
		}
	}

	out := make([]types.Node, len(nodes))
	copy(out, nodes)

	for i := range out {
		n := &out[i]
		if n.ParentID != nil {
			continue
		}
		if n.Level == "" {
			continue
		}

		parts := strings.Split(n.Level, ".")
		if len(parts) <= 1 {
			continue
		}
		parentLevel := strings.Join(parts[:len(parts)-1], ".")
		parent, ok := byLevel[parentLevel]
		if !ok {
			continue
		}

		parentID := parent.ID
		n.ParentID = &parentID
		warnings := make([]string, 0, len(n.Warnings)+1)
		warnings = append(warnings, n.Warnings...)
		warnings = append(warnings, "parent_assigned_from_level")
		n.Warnings = warnings
	}

	return out
}

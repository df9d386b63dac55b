package history

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zr/internal/core/ports"
)

// NodeID is the unique identifier for the history log Graft node.
const NodeID graft.ID = "adapter.history_log"

func init() {
	graft.Register(graft.Node[ports.HistoryLog]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.HistoryLog, error) {
			return New(DefaultPath())
		},
	})
}

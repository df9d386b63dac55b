package condition

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zr/internal/core/ports"
)

// NodeID is the unique identifier for the condition evaluator Graft node.
const NodeID graft.ID = "engine.condition_evaluator"

func init() {
	graft.Register(graft.Node[ports.ConditionEvaluator]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ConditionEvaluator, error) {
			return NewEvaluator(), nil
		},
	})
}

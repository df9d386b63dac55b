package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zr/internal/adapters/cas"                //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/adapters/fs"                 //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/adapters/history"            //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/adapters/logger"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/adapters/shell"               //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/adapters/telemetry/progrock"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zr/internal/engine/condition" //nolint:depguard // Wired in engine wiring
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			cas.NodeID,
			fs.HasherNodeID,
			fs.ResolverNodeID,
			fs.VerifierNodeID,
			condition.NodeID,
			history.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			resolver, err := graft.Dep[ports.InputResolver](ctx)
			if err != nil {
				return nil, err
			}
			logger, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cond, err := graft.Dep[ports.ConditionEvaluator](ctx)
			if err != nil {
				return nil, err
			}
			hist, err := graft.Dep[ports.HistoryLog](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			verifier, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}

			return New(
				executor,
				store,
				nil, // remote cache is opt-in via configuration, wired separately by app.NewApp
				hasher,
				resolver,
				logger,
				cond,
				hist,
				tel,
				verifier,
			), nil
		},
	})
}

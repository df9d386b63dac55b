package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zr/internal/adapters/cas"     //nolint:depguard // Wired in app layer
	"go.trai.ch/zr/internal/adapters/config"  //nolint:depguard // Wired in app layer
	"go.trai.ch/zr/internal/adapters/history" //nolint:depguard // Wired in app layer
	"go.trai.ch/zr/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zr/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			scheduler.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			sched, err := graft.Dep[*scheduler.Scheduler](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(loader, sched, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
			cas.NodeID,
			history.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			appInstance, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			cacheStore, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}

			histLog, err := graft.Dep[ports.HistoryLog](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(appInstance, log, loader, cacheStore, histLog), nil
		},
	})
}

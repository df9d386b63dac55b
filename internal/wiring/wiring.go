// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/zr/internal/adapters/cas"
	_ "go.trai.ch/zr/internal/adapters/config"
	_ "go.trai.ch/zr/internal/adapters/fs"
	_ "go.trai.ch/zr/internal/adapters/history"
	_ "go.trai.ch/zr/internal/adapters/logger"
	_ "go.trai.ch/zr/internal/adapters/shell"
	_ "go.trai.ch/zr/internal/adapters/telemetry/progrock"
	// Register engine nodes.
	_ "go.trai.ch/zr/internal/engine/condition"
	_ "go.trai.ch/zr/internal/engine/scheduler"
	// Register app nodes.
	_ "go.trai.ch/zr/internal/app"
)

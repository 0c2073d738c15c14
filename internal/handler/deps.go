package handler

import (
	"context"

	"torwatch/internal/app/directory"
	"torwatch/internal/app/feed"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/configs"
)

// Directory is the lookup seam used by the on-demand status endpoint.
type Directory interface {
	Lookup(ctx context.Context, fp node.Fingerprint) (*directory.RelayInfo, error)
}

// AppDeps bundles the collaborators the operator API handlers need.
type AppDeps struct {
	Config    *configs.AppConfig
	Store     registry.Store
	Directory Directory
	Hub       *feed.Hub
}

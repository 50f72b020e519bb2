//go:build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/Digital-Creators-Team/arcade-client/config"
)

// InitializeRuntime assembles the client from cfg
func InitializeRuntime(cfg *config.Config) (*Runtime, func(), error) {
	wire.Build(FullSet)
	return nil, nil, nil
}

// Package app provides the public API surface of pagemetry for embedders.
package app

import (
	"github.com/karloscodes/cartridge"

	"pagemetry/internal"
	"pagemetry/internal/config"
	"pagemetry/internal/database"
)

// Re-export core types
type (
	Application = internal.Application
	Config      = config.Config
	DBManager   = database.DBManager
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	return config.GetConfig()
}

// NewApp creates a new application with default routes
func NewApp() (*Application, error) {
	return internal.NewApp()
}

// MountAppRoutes mounts the application routes on a cartridge server
func MountAppRoutes(srv *cartridge.Server) {
	internal.MountAppRoutes(srv)
}

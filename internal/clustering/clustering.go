// Package clustering selects the configured cluster assigner.
package clustering

import (
	"fmt"

	"gapscan/internal/clustering/dbscan"
	"gapscan/internal/config"
	"gapscan/internal/domain"
)

// New builds the clusterer named by cfg.Type.
func New(cfg config.ClustererConfig) (domain.Clusterer, error) {
	switch cfg.Type {
	case "dbscan", "":
		return dbscan.New(dbscan.Config{
			MinPoints:   cfg.MinPoints,
			Eps:         cfg.Eps,
			EpsQuantile: cfg.EpsQuantile,
		}), nil
	default:
		return nil, fmt.Errorf("unknown clusterer: %s", cfg.Type)
	}
}

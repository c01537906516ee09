package main

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	"github.com/unihub/unihub/internal/logger"
	"github.com/unihub/unihub/internal/migration"
	"github.com/unihub/unihub/internal/server"
	"github.com/unihub/unihub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)

	app.Run()
}

// RegisterSnowflake derives the node id from the hostname so replicas
// of the same deployment do not mint colliding ids.
func RegisterSnowflake() (*snowflake.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unihub"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	nodeID := int64(h.Sum32() % 1024)

	return snowflake.NewNode(nodeID)
}

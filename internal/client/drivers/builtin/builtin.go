// Package builtin wires every bundled driver into a registry.
package builtin

import (
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/fsdir"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/grpc"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/inmem"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/mongo"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/redis"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/s3"
)

// NewRegistry returns a registry with all bundled drivers. The inmem driver
// lives as long as the process and is meant for trying things out.
func NewRegistry() *drivers.Registry {
	r := drivers.NewRegistry()
	r.Register(inmem.TypeName, inmem.NewBackend().Factory())
	r.Register(fsdir.TypeName, fsdir.New)
	r.Register(s3.TypeName, s3.New)
	r.Register(grpc.TypeName, grpc.New)
	r.Register(redis.TypeName, redis.New)
	r.Register(mongo.TypeName, mongo.New)
	return r
}

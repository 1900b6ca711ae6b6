// Package app assembles the lean-lsp-proxy application.
package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/gateway"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/handler"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/core"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/fs"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/langserver"
)

// Module defines the lean-lsp-proxy application module.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	fs.Module,
	langserver.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "lean-lsp-proxy",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
)

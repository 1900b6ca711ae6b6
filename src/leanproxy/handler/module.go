package handler

import (
	controller "github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller"
	lspproxy "github.com/leancollab/lean-lsp-proxy/src/leanproxy/handler/lsp-proxy"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/repository/session"
	"go.uber.org/fx"
)

// Module provides the lean-lsp-proxy server into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(session.New),
	fx.Provide(lspproxy.New),
	fx.Invoke(func(h lspproxy.Handler) {}),
)

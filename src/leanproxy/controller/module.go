package controller

import (
	docsync "github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller/doc-sync"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller/proxy"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(docsync.New),
	fx.Provide(proxy.New),
)

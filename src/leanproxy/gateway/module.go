package gateway

import (
	editorclient "github.com/leancollab/lean-lsp-proxy/src/leanproxy/gateway/editor-client"
	"go.uber.org/fx"
)

// Module provides the outbound gateways into an Fx application.
var Module = fx.Options(
	editorclient.Module,
)

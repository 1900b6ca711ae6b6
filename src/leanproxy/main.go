package main

import (
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/app"
	"go.uber.org/fx"
)

func opts() fx.Option {
	return fx.Options(
		app.Module,
	)
}

func main() {
	fx.New(opts()).Run()
}

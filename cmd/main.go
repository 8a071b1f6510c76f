package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/cli"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

const appVersion = "1.0.0"

// --- Main ---

func main() {
	ctx := context.Background()
	ctx = context.WithValue(ctx, model.ContextAppName, "Perfect Menu Print Labels")
	ctx = context.WithValue(ctx, model.ContextAppVersion, appVersion)
	ctx = context.WithValue(ctx, model.ContextAppAuthor, "Riboost Studio")

	root := cli.NewRootCmd()
	if err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(appVersion),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"

	"ecoleta/cmd/ecoleta/commands"
	"ecoleta/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}

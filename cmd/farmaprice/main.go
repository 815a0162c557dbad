package main

import (
	"context"

	"farmaprice-backend/cmd/farmaprice/commands"
	"farmaprice-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}

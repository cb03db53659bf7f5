package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Partition backings register themselves with the datasource registry.
	_ "github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource/neo4j"
	_ "github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource/sqlite"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

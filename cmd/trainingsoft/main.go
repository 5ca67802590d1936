// Command trainingsoft is the command line client of TrainingSoft.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sstasesores/trainingsoft/cmd/trainingsoft/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Options{})
	stop()
	os.Exit(code)
}

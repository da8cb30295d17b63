// vaulta - an encrypted incident report vault with perpetrator matching.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vaulta/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vaulta: %v\n", err)
		os.Exit(1)
	}
}

// Command fract applies fract envelopes to HTML documents from the shell.
//
// Usage:
//
//	fract apply --doc page.html --envelope resp.json
//	fract send http://localhost:8080/cart --doc page.html -X POST -d id=3
//	fract version
//
// Settings are read from fract.yaml (see --config), .env and FRACT_*
// environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

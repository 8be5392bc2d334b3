// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command canvasprobe runs canvas queries against YAML scene fixtures.
//
// Usage:
//
//	canvasprobe hit scene.yaml --at 640,400
//	canvasprobe snap scene.yaml --drag n1 --from 0,0 --to 96,4
//	canvasprobe render scene.yaml --watch
//	canvasprobe check scene.yaml
//
// Exit codes: 0 success, 1 findings reported by check, 2 error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeProbe(context.WithoutCancel(ctx), os.Stderr); closeErr != nil {
		fmt.Fprintf(os.Stderr, "canvasprobe: shutdown: %v\n", closeErr)
	}
	stop()

	if err != nil && exitCode(err) == CLIExitError {
		fmt.Fprintf(os.Stderr, "canvasprobe: %v\n", err)
	}
	os.Exit(exitCode(err))
}

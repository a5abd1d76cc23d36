// Command crosscheck runs API to database consistency checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/crosscheck/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		// ExitErrors have already been reported in the chosen format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}

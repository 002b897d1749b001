// Command a11yoracle predicts, captures, and reconciles console accessibility
// notifications.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/a11yoracle/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}

package main

import (
	"fmt"
	"os"

	"github.com/oakwood-commons/rowpick/cmd"
	"github.com/oakwood-commons/rowpick/pkg/logger"
)

func main() {
	exitCode := 0
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = cmd.ExitCode(err)
	}

	logger.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

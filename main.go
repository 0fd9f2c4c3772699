package main

import (
	"fmt"
	"os"

	"github.com/asaidimu/go-anansi-neo4j/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	mathaicmder "github.com/papercomputeco/mathai/cmd/mathai"
)

func main() {
	cmd := mathaicmder.NewMathaiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

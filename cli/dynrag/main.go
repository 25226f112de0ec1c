package main

import (
	"os"

	dynragcmder "github.com/danielpid/dynamic-rag/cmd/dynrag"
)

func main() {
	cmd := dynragcmder.NewDynragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

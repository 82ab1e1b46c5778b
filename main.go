package main

import (
	"os"

	"github.com/makibytes/mqk/broker"
	"github.com/makibytes/mqk/log"
)

func main() {
	if err := broker.GetRootCommand().Execute(); err != nil {
		log.Error("%s\n", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-sharding-parser/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

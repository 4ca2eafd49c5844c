package main

import (
	"log"
	"os"

	"github.com/trezcool/escuela/core"
	apisvc "github.com/trezcool/escuela/services/api"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "PORTALCTL : ", log.LstdFlags)

	cli := commandLine{
		backend: apisvc.NewClient(core.Conf.APIURL, core.Conf.RequestTimeout),
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("error: %s\n", err)
		}
		os.Exit(1)
	}
}

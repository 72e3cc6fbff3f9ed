package main

import (
	"fmt"
	"log"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	logger := log.New(os.Stdout, "busscraper ", log.LstdFlags)
	log.SetOutput(logger.Writer())
	log.SetPrefix(logger.Prefix())

	app := newCLIApp(logger)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

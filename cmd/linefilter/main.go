package main

import (
	"fmt"
	"os"

	"github.com/M-Samuel/security-camera/internal/config"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/service/filter"
)

func main() {
	if len(os.Args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: linefilter < input")
		os.Exit(2)
	}

	log, err := logger.NewLogger(config.Load())
	if err != nil {
		fmt.Fprintf(os.Stderr, "linefilter: %v\n", err)
		os.Exit(1)
	}

	stats, err := filter.New(log).Run(os.Stdin, os.Stdout)
	if err != nil {
		log.Error("Line filter stopped after %d lines: %v", stats.Lines, err)
		log.Close()
		os.Exit(1)
	}
	log.Close()
}

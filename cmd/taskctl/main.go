package main

import (
	"os"

	"delayed-task-queue/internal/config"
	"delayed-task-queue/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	a := newApp(cfg)
	if err := execute(a, newRootCmd(a)); err != nil {
		os.Exit(1)
	}
}

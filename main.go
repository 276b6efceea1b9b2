package main

import (
	"os"

	"bigsched/cmd"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("Supervisor exited with an error")
		os.Exit(1)
	}
}

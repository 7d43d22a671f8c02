package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/log/hooks"
	"github.com/u20024804/heron/submitter"
)

func main() {
	log.AddHook(hooks.NewContextHook())

	client, err := submitter.NewSimpleCLIClient()
	if err != nil {
		log.Fatal("Failed to create submitter CLIClient: ", err)
	}
	if err := client.Exec(); err != nil {
		log.Fatal("Error running submitter: ", err)
	}
}

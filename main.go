package main

import (
	"log"

	"github.com/spigell/ai-interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

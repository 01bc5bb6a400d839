package main

import (
	"log"

	"github.com/clipmate/clipmate/clipmated/server"
)

func main() {
	serverInstance := server.New()
	if err := serverInstance.Start(); err != nil {
		log.Fatal("[Clipmate] Failed to start server: ", err)
	}
}

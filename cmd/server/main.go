package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
}

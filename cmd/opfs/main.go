// opfs is a command line client for mounted storage providers.
//
// Providers are declared in a YAML file (OPFS_CONFIG, default opfs.yaml):
//
//	default: pods
//	providers:
//	  pods:
//	    type: fairos
//	    options:
//	      host: https://fairos.dev.fairdatasociety.org/
//	      username: alice
//	      password: ${FAIROS_PASSWORD}
//
// Examples:
//
//	opfs mounts --all
//	opfs ls photos 2024
//	opfs put photos ./cover.png
//	opfs cat photos 2024/cover.png > cover.png
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

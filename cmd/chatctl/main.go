// Package main provides the entry point for chatctl.
package main

import (
	"fmt"
	"os"

	"modelchat-backend/internal/admin"
)

func main() {
	if err := admin.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/vibetunes/vibetunes-backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vibetunes:", err)
		os.Exit(1)
	}
}

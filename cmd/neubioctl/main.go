// Command neubioctl is the setup-time companion of the neubio server:
// password hashing, seed and migration helpers, and one-shot sync
// operations that share the server's persisted state.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

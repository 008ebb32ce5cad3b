// Package main is the crmctl operator CLI: schema migrations, seeding and
// one-off maintenance.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

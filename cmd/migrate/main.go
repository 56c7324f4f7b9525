// migrate runs the local schema migrations from embedded SQL; the binaries also
// apply them on startup, so this is mainly for downgrades and debugging.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"family-radio/companion/internal/config"
	"family-radio/companion/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabasePath(), *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Already at target version; success.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

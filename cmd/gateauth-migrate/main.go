// Command gateauth-migrate applies or rolls back the Postgres session schema.
//
//	gateauth-migrate [up|down]
//
// The DSN is read from DATABASE_URL.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/gateAuth/session"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: gateauth-migrate [up|down]")
	}
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	if err := session.Migrate(os.Getenv("DATABASE_URL"), direction); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", direction, err)
		os.Exit(1)
	}
	fmt.Printf("migrate %s: ok\n", direction)
}

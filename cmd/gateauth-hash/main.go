// Command gateauth-hash reads a login secret from stdin and prints the
// argon2id PHC string to use as AUTH_SECRET_HASH.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/gateAuth/password"
)

func main() {
	bcryptCost := flag.Int("bcrypt-cost", 0, "emit a bcrypt hash with this cost instead of argon2id")
	flag.Parse()

	secret, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && secret == "" {
		fail("read secret: %v", err)
	}
	secret = strings.TrimRight(secret, "\r\n")
	if secret == "" {
		fail("empty secret")
	}

	var hash string
	if *bcryptCost > 0 {
		b, err := password.NewBcrypt(*bcryptCost)
		if err != nil {
			fail("%v", err)
		}
		hash, err = b.Hash(secret)
		if err != nil {
			fail("%v", err)
		}
	} else {
		a, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			fail("%v", err)
		}
		hash, err = a.Hash(secret)
		if err != nil {
			fail("%v", err)
		}
	}
	fmt.Println(hash)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "gateauth-hash: "+format+"\n", args...)
	os.Exit(1)
}

// Command chatclient connects to a length-prefixed TCP chat server and
// relays lines typed on the keyboard while printing what the server sends.
//
//	chatclient <server IP> <port>
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		// A failed session has already told the user what went wrong.
		if !errors.Is(err, errSessionFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

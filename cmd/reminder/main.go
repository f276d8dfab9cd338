// Command reminder watches discussion boards for posts whose titles contain
// given keywords and forwards them through the configured notification channels.
//
// Usage:
//
//	reminder -b Gossiping -k "颱風,停班" -b ptt:Stock -k "2330" -u alice
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reminder start failed: %v\n", err)
		os.Exit(1)
	}
}

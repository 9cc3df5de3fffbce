// Command chanlog records IRC channels as plain and HTML transcripts.
package main

import (
	"os"

	// Register connector implementations.
	_ "github.com/crimson-sun/chanlog/internal/connector/ircclient"
	_ "github.com/crimson-sun/chanlog/internal/connector/replay"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

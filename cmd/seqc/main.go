// Command seqc is the thin compiler driver binary; all logic lives in
// internal/cli so the test harness can invoke it in-process.
package main

import (
	"os"

	"github.com/seqc/seqc/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:]))
}

package main

import (
	"os"

	// Embed the IANA database so COMPLIANCE_TIMEZONE resolves in minimal images.
	_ "time/tzdata"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

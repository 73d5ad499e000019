// Package main is the entry point for anistream.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/anisan-cli/anistream/cmd"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/internal/cache"
	"github.com/anisan-cli/anistream/log"
	"github.com/samber/lo"
)

func main() {
	if err := config.Setup(); err != nil {
		var invalid *config.InvalidValueError
		if !errors.As(err, &invalid) {
			panic(err)
		}
		fmt.Fprintf(os.Stderr, "%v, run \"anistream config reset --key %s\"\n", err, invalid.Key)
	}
	lo.Must0(log.Setup())

	go cache.CollectGarbage()

	cmd.Execute()
}

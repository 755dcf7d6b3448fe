package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/shiplabel/internal/shiplabelcli"
)

func main() {
	if err := shiplabelcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, shiplabelcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			shiplabelcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

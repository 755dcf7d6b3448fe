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
			fmt.Fprintln(os.Stderr, "usage: shiplabel setup [--force]")
			fmt.Fprintln(os.Stderr, "       shiplabel run api|client|all")
			fmt.Fprintln(os.Stderr, "       shiplabel invoices <spreadsheet>")
			fmt.Fprintln(os.Stderr, "       shiplabel generate --file <spreadsheet> [--start id] [--end id] [--out path]")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

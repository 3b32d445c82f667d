// chathub-inspect dumps raw keys from a chathub database for debugging.
// Run it against a copy, not a live database; pebble takes an exclusive
// lock.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

func main() {
	var path, prefix string
	var values bool
	flag.StringVar(&path, "db", "", "pebble db path")
	flag.StringVar(&prefix, "prefix", "", "key prefix filter (e.g. conv:, user:, receipt:)")
	flag.BoolVar(&values, "values", false, "print values as well as keys")
	flag.Parse()
	if path == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	db, err := pebble.Open(path, &pebble.Options{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer db.Close()

	opts := &pebble.IterOptions{}
	if prefix != "" {
		opts.LowerBound = []byte(prefix)
		opts.UpperBound = append([]byte(prefix), 0xff)
	}
	iter, err := db.NewIter(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iterator: %v\n", err)
		os.Exit(1)
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if values {
			fmt.Printf("%s\t%s\n", iter.Key(), iter.Value())
		} else {
			fmt.Println(string(iter.Key()))
		}
		n++
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", n)
}

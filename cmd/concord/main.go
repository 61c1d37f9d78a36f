// Command concord builds a word-occurrence index over a text file and
// either prints the full concordance or looks up individual words.
//
// Usage:
//
//	concord -file book.txt                 # print every word with its lines
//	concord -file book.txt cat dog         # print lines for selected words
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/concord-index/concord/internal/index"
	"github.com/concord-index/concord/internal/indexer"
	"github.com/concord-index/concord/pkg/config"
	"github.com/concord-index/concord/pkg/logger"
)

func main() {
	file := flag.String("file", "", "path to the text file to index")
	asJSON := flag.Bool("json", false, "emit JSON instead of plain text")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: concord -file <path> [word ...]")
		os.Exit(2)
	}

	engine := indexer.New(config.IndexerConfig{}, nil)
	if _, err := engine.IndexFile(*file); err != nil {
		fmt.Fprintf(os.Stderr, "concord: %v\n", err)
		os.Exit(1)
	}

	words := flag.Args()
	if len(words) == 0 {
		dumpAll(engine, *asJSON)
		return
	}
	lookupWords(engine, words, *asJSON)
}

func dumpAll(engine *indexer.Engine, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(engine.Entries()); err != nil {
			fmt.Fprintf(os.Stderr, "concord: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for word, lines := range engine.All() {
		fmt.Printf("%s: %v\n", word, lines)
	}
}

func lookupWords(engine *indexer.Engine, words []string, asJSON bool) {
	if asJSON {
		results := make([]index.Entry, 0, len(words))
		for _, w := range words {
			lines := engine.Lookup(w)
			if lines == nil {
				lines = []int{}
			}
			results = append(results, index.Entry{Word: w, Lines: lines})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "concord: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, w := range words {
		lines := engine.Lookup(w)
		if len(lines) == 0 {
			fmt.Printf("%s: not found\n", w)
			continue
		}
		fmt.Printf("%s: %v\n", w, lines)
	}
}

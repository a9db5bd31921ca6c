package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dartbook/mcp-server/internal/book"
	"github.com/dartbook/mcp-server/internal/lint"
)

func main() {
	jsonOut := flag.Bool("json", false, "emit the full report as JSON")
	quiet := flag.Bool("quiet", false, "suppress warnings, print errors only")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <book-dir>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs the content-integrity checks over a book directory:\n")
		fmt.Fprintf(os.Stderr, "canonical sections, exercise/solution pairing, cross-references,\n")
		fmt.Fprintf(os.Stderr, "duplicate chapters and code fences.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	root := flag.Arg(0)

	b, err := book.Load(root)
	if err != nil {
		log.Fatalf("Failed to load book: %v", err)
	}

	report := lint.Run(b)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		for _, issue := range report.Issues {
			if *quiet && issue.Severity != lint.SeverityError {
				continue
			}
			fmt.Println(issue)
		}
		fmt.Fprintln(os.Stderr, lint.Summary(report))
	}

	if !report.Clean() {
		os.Exit(1)
	}
}

// Command docqa runs the PDF ingestion and question-answering gateway.
//
// Uploads sent to POST /upload_pdf/ are stored, their text extracted and
// published to Kafka, and their metadata saved in PostgreSQL. Questions sent
// to POST /chatbot/ are published to Kafka and answered from the responses
// topic.
//
// Usage:
//
//	docqa serve [--config configs/development.yaml] [--no-migrate]
//	docqa migrate up|down [--config ...]
//	docqa reconcile [--config ...] [--min-age 1m]
//
// Running docqa with no arguments starts the gateway.
package main

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/cli"
)

func main() {
	rootCmd := cli.RootCmd()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

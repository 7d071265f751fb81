// Command escat is a smoke-test CLI for escore.Client: it performs one
// request against a cluster and prints the resulting HttpDetails and audit
// trail as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thammadi/escore"
)

var (
	flagURL    string
	flagMethod string
	flagPath   string
	flagBody   string
	flagSniff  bool
	flagPing   bool
	flagTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "escat",
		Short: "Send one request through escore's node pool and print the result",
		RunE:  run,
	}

	root.Flags().StringVar(&flagURL, "url", escore.DefaultURL, "seed node URL")
	root.Flags().StringVar(&flagMethod, "method", "GET", "HTTP method")
	root.Flags().StringVar(&flagPath, "path", "/", "request path")
	root.Flags().StringVar(&flagBody, "body", "", "request body")
	root.Flags().BoolVar(&flagSniff, "sniff", true, "discover cluster membership via sniffing")
	root.Flags().BoolVar(&flagPing, "ping", true, "ping the selected node before each request")
	root.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "overall request timeout")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	client, err := escore.NewClient(
		escore.WithURL(flagURL),
		escore.WithSniff(flagSniff),
		escore.WithPing(flagPing),
	)
	if err != nil {
		return fmt.Errorf("escat: building client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	resp, err := client.PerformRequest(ctx, flagMethod, flagPath, []byte(flagBody))

	out := struct {
		ApiCall escore.HttpDetails `json:"api_call"`
		Body    interface{}        `json:"body,omitempty"`
		Error   string             `json:"error,omitempty"`
	}{}
	if resp != nil {
		out.ApiCall = resp.ApiCall
		out.Body = resp.Body
	}
	if err != nil {
		out.Error = err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}

	if err != nil {
		os.Exit(1)
	}
	return nil
}

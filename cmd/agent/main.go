package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/di"
	"search-agent/internal/infrastructure/env"
	"search-agent/internal/infrastructure/logger"
	"search-agent/internal/infrastructure/presenter"
	"search-agent/internal/usecase/extractor"
)

const defaultQuery = "Search for top 3 indian players in ICC ODI batting rankings"

func main() {
	jsonOut := flag.Bool("json", false, "print the result as JSON")
	verbose := flag.Bool("v", false, "show the agent's steps as they happen")
	flag.Parse()

	query, err := readQuery(flag.Args(), os.Stdin)
	if err != nil {
		log.Fatal("failed to read query: ", err)
	}

	envService := env.NewEnvService()
	cfg, err := di.ConfigFromEnv(envService)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	fileLogger, err := logger.NewFileLogger(query, logger.Config{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer fileLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	console := presenter.NewConsolePresenter(os.Stdout)
	var progress output.ProgressPort
	if *verbose && !*jsonOut {
		progress = console
	}

	container, err := di.NewContainer(ctx, cfg, fileLogger, progress)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer container.Close()

	if !*jsonOut {
		console.ShowBanner(query)
	}

	outcome, err := container.Search.Search(ctx, query)
	if err != nil {
		if *jsonOut {
			writeJSONError(os.Stdout, err)
		} else {
			console.ShowFailure(err)
		}
		container.Close()
		fileLogger.Close()
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			log.Fatalf("failed to encode result: %v", err)
		}
		return
	}
	console.ShowResult(outcome)
}

// readQuery takes the query from the arguments, then from piped stdin, and
// falls back to the default query.
func readQuery(args []string, stdin *os.File) (string, error) {
	if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
		return q, nil
	}

	if info, err := stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(bufio.NewReader(stdin))
		if err != nil {
			return "", err
		}
		if q := strings.TrimSpace(string(data)); q != "" {
			return q, nil
		}
	}

	return defaultQuery, nil
}

func writeJSONError(w io.Writer, err error) {
	body := map[string]string{"error": "SearchFailed", "message": err.Error()}
	if kind, ok := extractor.KindOf(err); ok {
		body["error"] = string(kind)
		body["raw"] = extractor.RawOf(err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(body); encErr != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

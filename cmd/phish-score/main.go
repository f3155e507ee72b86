package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/di"
	"github.com/phishspector/phishspector/internal/textutil"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(logger *zap.Logger, service *core.ScoringService, ml core.MLBackend) error {
		defer logger.Sync()
		defer closeBackend(ml, logger)

		if flags.URL != "" {
			return checkURL(service, flags.URL)
		}
		return scoreMessage(service, flags, logger)
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func scoreMessage(service *core.ScoringService, flags *di.CLIFlags, logger *zap.Logger) error {
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file %s: %w", flags.InputFile, err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(reader))
	if err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	from := msg.Header.Get("From")
	subject := msg.Header.Get("Subject")

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}
	snippet := textutil.Truncate(textutil.Sanitize(string(bodyBytes)), 500)

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Body length: %d bytes\n", len(bodyBytes))

	startTime := time.Now()
	bundle := service.ScoreMessage(context.Background(), core.ScoreRequest{
		MessageID: strings.Trim(msg.Header.Get("Message-ID"), "<>"),
		Sender:    from,
		Subject:   subject,
		Snippet:   snippet,
		Row:       from + " " + subject + " " + snippet,
	})

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Lexical score: %d\n", bundle.Local)
	if bundle.MLAvailable {
		fmt.Printf("ML score: %d\n", bundle.ML)
	} else {
		fmt.Printf("ML score: unavailable\n")
	}
	fmt.Printf("Header trust: %d\n", bundle.HeaderTrust)
	fmt.Printf("Final score: %d\n", bundle.Final)
	fmt.Printf("Verdict: %s (%s risk)\n", bundle.Verdict, bundle.Verdict.RiskLabel())
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
	return nil
}

func checkURL(service *core.ScoringService, rawURL string) error {
	verdict := service.CheckLink(context.Background(), rawURL, nil)

	fmt.Printf("\n=== URL Check ===\n")
	fmt.Printf("URL: %s\n", rawURL)
	fmt.Printf("Risk score: %d\n", verdict.Risk)
	fmt.Printf("Final score: %d\n", verdict.Final)
	fmt.Printf("Pattern veto: %t\n", verdict.PatternVeto)
	if len(verdict.Reasons) > 0 {
		fmt.Printf("Reasons: %s\n", strings.Join(verdict.Reasons, "; "))
	}
	fmt.Printf("Verdict: %s\n", verdict.Verdict)
	return nil
}

func closeBackend(ml core.MLBackend, logger *zap.Logger) {
	if closer, ok := ml.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier client", zap.Error(err))
		}
	}
}

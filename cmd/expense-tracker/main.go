package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-tracker/internal/expense"
	"github.com/zombor/expense-tracker/internal/insight"
	"github.com/zombor/expense-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("expense-tracker")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "", "Database file path (empty keeps expenses in memory)")
		storagePath = fs.StringLong("storage", "./receipts", "Receipt image directory")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'openai'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI model name")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (required)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (required)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// The API is not usable without credentials, so their absence is
	// fatal. A missing AI key only degrades scanning and insights.
	if *authUser == "" || *authPass == "" {
		slog.Error("Basic auth credentials are required. Set --auth-user/--auth-pass or EXPENSE_TRACKER_AUTH_USER/EXPENSE_TRACKER_AUTH_PASS")
		os.Exit(1)
	}

	var store expense.Store
	var err error
	if *dbPath != "" {
		slog.Info("Initializing database...", "path", *dbPath)
		store, err = expense.NewBoltStore(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Using in-memory expense store; expenses are lost on restart")
		store = expense.NewMemoryStore()
	}
	defer store.Close()

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var scanner scanning.Scanner
	var analyzer insight.Analyzer
	switch *scannerType {
	case "gemini":
		if apiKey == "" {
			slog.Warn("No Gemini API key configured; receipt scanning and insights are disabled")
			scanner = scanning.Disabled{}
			analyzer = insight.Noop{}
			break
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		analyzer, err = insight.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini analyzer", "error", err)
			os.Exit(1)
		}
	case "openai":
		key := *openaiKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			slog.Warn("No OpenAI API key configured; receipt scanning is disabled")
			scanner = scanning.Disabled{}
		} else {
			slog.Info("Initializing OpenAI scanner...", "model", *openaiModel)
			scanner, err = scanning.NewOpenAI(key, *openaiModel)
			if err != nil {
				slog.Error("Failed to initialize OpenAI", "error", err)
				os.Exit(1)
			}
		}
		// Insights stay on Gemini when a key is present.
		if apiKey != "" {
			analyzer, err = insight.NewGemini(apiKey, *geminiModel)
			if err != nil {
				slog.Error("Failed to initialize Gemini analyzer", "error", err)
				os.Exit(1)
			}
		} else {
			analyzer = insight.Noop{}
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or openai")
		os.Exit(1)
	}
	defer scanner.Close()
	defer analyzer.Close()

	slog.Info("Initializing storage...", "path", *storagePath)
	files, err := expense.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := expense.NewService(store, scanner, files)
	server := expense.NewServer(service, analyzer, expense.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

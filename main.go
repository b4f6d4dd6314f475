package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-insight/internal/analyze"
	"github.com/dtnitsch/news-insight/internal/db"
	"github.com/dtnitsch/news-insight/internal/fetch"
	"github.com/dtnitsch/news-insight/internal/serve"
	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/gateway"
)

func main() {
	app := &cli.App{
		Name:  "news-insight",
		Usage: "Summarize news pages, flag biased language and extract claims with a local or hosted model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "YAML config file (optional)"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "provider", Usage: "Model provider: auto, genai, ollama or none"},
			&cli.StringFlag{Name: "model", Usage: "Model name for the selected provider"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug output"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the message API for browser UIs",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen address"}},
				Action: serve.ServeAction,
			},
			{
				Name:      "extract",
				Usage:     "Fetch pages and print their extracted content",
				ArgsUsage: "<url> [url...]",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Concurrent fetches"},
				},
				Action: fetch.ExtractAction,
			},
			{
				Name:      "analyze",
				Usage:     "Summarize a page and list its biases and claims",
				ArgsUsage: "[url]",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{Name: "kind", Usage: fmt.Sprintf("Run a single analysis (%s, %s, %s, %s, %s, %s, %s, %s, %s)",
						models.KindSummary, models.KindBiases, models.KindClaims, models.KindHighlight,
						models.KindProofread, models.KindRewrite, models.KindWebpageQA,
						models.KindImageAnalysis, models.KindCalendarExtract)},
					&cli.StringFlag{Name: "text", Usage: "Text for Highlight, Proofread and Rewrite"},
					&cli.StringFlag{Name: "question", Usage: "Question for WebpageQA"},
					&cli.StringFlag{Name: "image", Usage: "Image URL for ImageAnalysis"},
				},
				Action: analyze.AnalyzeAction,
			},
			{
				Name:      "highlight",
				Usage:     "Mark loaded language, absolutes and weak sources in a page",
				ArgsUsage: "<url>",
				Flags:     []cli.Flag{formatFlag()},
				Action:    analyze.HighlightAction,
			},
			{
				Name:      "proofread",
				Usage:     "Proofread text from --text, arguments or stdin",
				ArgsUsage: "[text]",
				Flags:     []cli.Flag{formatFlag(), &cli.StringFlag{Name: "text"}},
				Action:    analyze.ProofreadAction,
			},
			{
				Name:      "rewrite",
				Usage:     "Rewrite text in neutral language",
				ArgsUsage: "[text]",
				Flags:     []cli.Flag{formatFlag(), &cli.StringFlag{Name: "text"}},
				Action:    analyze.RewriteAction,
			},
			{
				Name:      "calendar",
				Usage:     "List dated events mentioned in a page",
				ArgsUsage: "<url>",
				Flags:     []cli.Flag{formatFlag()},
				Action:    analyze.CalendarAction,
			},
			{
				Name:  "settings",
				Usage: "Show or change feature flags",
				Subcommands: []*cli.Command{
					{
						Name:   "get",
						Usage:  "Show every flag",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "table, json or yaml"}},
						Action: db.SettingsGetAction,
					},
					{Name: "set", Usage: "Set a flag", ArgsUsage: "<flag> <true|false>", Action: db.SettingsSetAction},
					{Name: "reset", Usage: "Restore defaults", Action: db.SettingsResetAction},
				},
			},
			{
				Name:  "db",
				Usage: "Inspect stored results and fetch history",
				Subcommands: []*cli.Command{
					{
						Name:  "cache",
						Usage: "List cached calendar and image results",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "prefix", Usage: "Only keys with this prefix (calendar:, image:)"},
							&cli.BoolFlag{Name: "clear", Usage: "Remove cached results"},
						},
						Action: db.CacheAction,
					},
					{Name: "fetch", Usage: "Show the last fetch of a URL", ArgsUsage: "<url>", Flags: []cli.Flag{formatFlag()}, Action: db.FetchAction},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the model backend and capability availability",
				Flags:  []cli.Flag{formatFlag()},
				Action: serve.StatusAction,
			},
			{
				Name:  "pull",
				Usage: "Download the model for a capability",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "capability", Value: string(gateway.CapLanguageModel), Usage: "summarizer, languageModel, rewriter or proofreader"},
				},
				Action: serve.PullAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "json",
		Usage:   "Output format: json, yaml or html",
	}
}

// Package main provides the rdflib binary: a SPARQL 1.1 query and
// update CLI over a badger-backed or in-memory RDF dataset.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gtfierro/rdflib/internal/config"
	"github.com/gtfierro/rdflib/internal/quadstore"
	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql"
	"github.com/gtfierro/rdflib/pkg/sparql/results"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type appFlags struct {
	configPath string
	storePath  string
	dataFiles  []string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &appFlags{}

	cmd := &cobra.Command{
		Use:   "rdflib",
		Short: "SPARQL 1.1 query and update over RDF datasets",
		Long: `rdflib evaluates SPARQL 1.1 queries and updates against an RDF
dataset. The dataset is either a persistent badger store (--store) or
an in-memory one seeded from RDF files (--data).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.storePath, "store", "", "badger store directory (overrides config)")
	cmd.PersistentFlags().StringArrayVar(&flags.dataFiles, "data", nil, "RDF file to load before running (repeatable)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(queryCmd(flags))
	cmd.AddCommand(updateCmd(flags))
	cmd.AddCommand(versionCmd())
	return cmd
}

func queryCmd(flags *appFlags) *cobra.Command {
	var format string
	var file string

	cmd := &cobra.Command{
		Use:   "query [sparql]",
		Short: "Evaluate a SPARQL query and print the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(args, file)
			if err != nil {
				return err
			}

			app, err := newApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.processor.Query(cmd.Context(), text)
			if err != nil {
				return err
			}
			out, err := results.Serialize(result, results.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(results.FormatJSON), "result format: json, xml, csv, tsv")
	cmd.Flags().StringVar(&file, "file", "", "read the query from a file")
	return cmd
}

func updateCmd(flags *appFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update [sparql]",
		Short: "Apply a SPARQL update to the dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(args, file)
			if err != nil {
				return err
			}

			app, err := newApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.processor.Update(cmd.Context(), text); err != nil {
				return err
			}
			app.log.Info("update applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read the update from a file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rdflib version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rdflib %s\n", version)
		},
	}
}

func queryText(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass the query as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) > 0:
		return args[0], nil
	}
	return "", fmt.Errorf("no query given")
}

// app holds the wired-up dataset and processor for one invocation.
type app struct {
	ds        dataset.Dataset
	processor *sparql.Processor
	log       *slog.Logger
}

func newApp(flags *appFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.storePath != "" {
		cfg.Store.Path = flags.storePath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	log := newLogger(cfg.Log.Level)

	sparql.SetConfig(sparql.Config{
		LoadExternalGraphs:  cfg.Engine.LoadExternalGraphs,
		DefaultGraphIsUnion: cfg.Engine.DefaultGraphIsUnion,
	})

	var ds dataset.Dataset
	if cfg.Store.Path != "" {
		store, err := quadstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening store %s: %w", cfg.Store.Path, err)
		}
		log.Debug("opened persistent store", "path", cfg.Store.Path)
		ds = store
	} else {
		ds = dataset.NewMemoryDataset()
	}

	for _, path := range flags.dataFiles {
		n, err := loadFile(ds, path)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		log.Debug("loaded data file", "path", path, "quads", n)
	}

	return &app{ds: ds, processor: sparql.NewProcessor(ds), log: log}, nil
}

func (a *app) close() {
	if err := a.ds.Close(); err != nil {
		a.log.Warn("closing dataset", "err", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// contentTypeForFile maps a file extension to the parser content type.
func contentTypeForFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return "application/n-triples", nil
	case ".nq":
		return "application/n-quads", nil
	case ".ttl":
		return "text/turtle", nil
	case ".trig":
		return "application/trig", nil
	}
	return "", fmt.Errorf("cannot infer RDF format from extension of %s", path)
}

func loadFile(ds dataset.Dataset, path string) (int, error) {
	contentType, err := contentTypeForFile(path)
	if err != nil {
		return 0, err
	}
	parser, err := rdf.NewParser(contentType)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	quads, err := parser.Parse(f)
	if err != nil {
		return 0, err
	}
	if err := ds.Add(context.Background(), quads...); err != nil {
		return 0, err
	}
	return len(quads), nil
}

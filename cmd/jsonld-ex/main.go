package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"
	"gopkg.in/yaml.v3"

	jsonldex "github.com/zpc-sh/jsonld-ex"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	proc *jsonldex.Processor
	log  *slog.Logger

	verbose     bool
	optionsFile string
	optPairs    []string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "jsonld-ex",
		Short:         "diff, patch, and expand JSON and JSON-LD documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			}
			c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			c.proc = jsonldex.New(jsonldex.WithLogger(c.log))
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.optionsFile, "options-file", "", "YAML file of engine options")
	root.PersistentFlags().StringArrayVarP(&c.optPairs, "opt", "o", nil, "engine option key=value, repeatable")

	root.AddCommand(
		newDiffCmd(c),
		newBatchCmd(c),
		newPatchCmd(c),
		newExpandCmd(c),
		newVersionCmd(),
	)
	return root
}

// options merges the YAML options file with --opt pairs, pairs winning.
func (c *cli) options() (map[string]string, error) {
	opts := map[string]string{}
	if c.optionsFile != "" {
		data, err := os.ReadFile(c.optionsFile)
		if err != nil {
			return nil, fmt.Errorf("reading options file: %w", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("parsing options file: %w", err)
		}
	}
	for _, pair := range c.optPairs {
		key, val, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed --opt %q, want key=value", pair)
		}
		opts[key] = val
	}
	return opts, nil
}

func newDiffCmd(c *cli) *cobra.Command {
	var mode, format string
	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "compute a diff between two documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			new, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			opts, err := c.options()
			if err != nil {
				return err
			}

			if format == "jsonpatch" {
				if mode != "structural" {
					return fmt.Errorf("jsonpatch output requires structural mode")
				}
				patch, err := jsondiff.CompareJSON(old, new)
				if err != nil {
					return fmt.Errorf("computing json patch: %w", err)
				}
				data, err := json.Marshal(patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			var out []byte
			switch mode {
			case "structural":
				out, err = c.proc.DiffStructuralJSON(old, new, opts)
			case "operational":
				out, err = c.proc.DiffOperationalJSON(old, new, opts)
			case "semantic":
				out, err = c.proc.DiffSemanticJSON(old, new, opts)
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			if err != nil {
				return err
			}
			if format == "pretty" {
				if mode != "structural" {
					return fmt.Errorf("pretty output requires structural mode")
				}
				delta, err := jsonldex.ParseDocument(out)
				if err != nil {
					return err
				}
				return jsonldex.FormatPretty(cmd.OutOrStdout(), delta, isTTY())
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			logStats(c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "structural", "diff engine: structural, operational, or semantic")
	cmd.Flags().StringVarP(&format, "format", "f", "delta", "output format: delta, pretty, or jsonpatch")
	return cmd
}

func newBatchCmd(c *cli) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "batch <old.json> <new.json> [<old.json> <new.json> ...]",
		Short: "diff many document pairs concurrently",
		Long: "Diff each old/new file pair with the selected engine, bounded by\n" +
			"GOMAXPROCS, and print one JSON line per pair in argument order.\n" +
			"A failing pair prints an error line and never affects the others.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("batch takes an even number of files, old/new pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			items := make([]jsonldex.BatchDiffItem, len(args)/2)
			for i := range items {
				old, err := os.ReadFile(args[2*i])
				if err != nil {
					return err
				}
				new, err := os.ReadFile(args[2*i+1])
				if err != nil {
					return err
				}
				items[i] = jsonldex.BatchDiffItem{Old: old, New: new}
			}
			results := c.proc.BatchDiff(context.Background(), jsonldex.DiffKind(mode), items, opts)
			for i, r := range results {
				if r.Err != "" {
					line, err := json.Marshal(map[string]string{
						"old": args[2*i], "new": args[2*i+1], "error": r.Err,
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(line))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(r.Result))
			}
			logStats(c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "structural", "diff engine: structural, operational, or semantic")
	return cmd
}

func newPatchCmd(c *cli) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "patch <doc.json> <delta.json>",
		Short: "apply a diff to a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			delta, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var out []byte
			switch mode {
			case "structural":
				out, err = c.proc.PatchStructuralJSON(doc, delta)
			case "operational":
				out, err = c.proc.PatchOperationalJSON(doc, delta)
			case "semantic":
				out, err = c.proc.PatchSemanticJSON(doc, delta)
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			logStats(c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "structural", "patch engine: structural, operational, or semantic")
	return cmd
}

func newExpandCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <doc.json> [more.json ...]",
		Short: "expand documents to expanded JSON-LD form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([][]byte, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				docs[i] = data
			}
			if len(docs) == 1 {
				out, err := c.proc.ExpandJSON(docs[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			results := c.proc.BatchExpand(context.Background(), docs)
			for i, r := range results {
				if r.Err != "" {
					c.log.Error("expansion failed", "file", args[i], "error", r.Err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(r.Result))
			}
			logStats(c)
			return nil
		},
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semver",
		Short: "semantic version utilities",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "parse <version>",
			Short: "parse a version into a JSON-LD document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := jsonldex.ParseVersion(args[0])
				if err != nil {
					return err
				}
				data, err := jsonldex.MarshalDocument(doc)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "compare <a> <b>",
			Short: "compare two versions by precedence",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := jsonldex.CompareVersions(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "satisfies <version> <requirement>",
			Short: "check a version against an npm-style requirement",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := jsonldex.SatisfiesRequirement(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			},
		},
	)
	return cmd
}

func logStats(c *cli) {
	s := c.proc.Stats()
	c.log.Debug("processor stats",
		"structural_diffs", s.StructuralDiffs,
		"operational_diffs", s.OperationalDiffs,
		"semantic_diffs", s.SemanticDiffs,
		"expansions", s.Expansions,
		"cache_hits", s.CacheHits,
		"cache_misses", s.CacheMisses,
		"bytes_processed", s.BytesProcessed,
	)
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

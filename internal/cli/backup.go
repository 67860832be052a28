package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vytor/ctiprep/internal/app"
)

// Backup kinds accepted by export, import and reset.
const (
	kindDeck        = "deck"
	kindHistory     = "history"
	kindCollections = "collections"
)

func newExportCommand(e *env) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:       "export {deck|history|collections}",
		Short:     "Write a backup as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{kindDeck, kindHistory, kindCollections},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				var doc any
				switch args[0] {
				case kindDeck:
					doc = a.Deck.Export(ctx)
				case kindHistory:
					doc = a.History.List(ctx)
				case kindCollections:
					doc = a.Collections.Export(ctx)
				}

				out := cmd.OutOrStdout()
				if outPath != "" && outPath != "-" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("create %s: %w", outPath, err)
					}
					defer f.Close()
					out = f
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newImportCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "import {deck|history|collections} FILE",
		Short:     "Load a backup written by export",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindDeck, kindHistory, kindCollections},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				switch args[0] {
				case kindDeck:
					if err := a.Deck.Import(ctx, data); err != nil {
						return err
					}
					fmt.Fprintf(out, "Deck imported, %d items.\n", a.Deck.Stats(ctx).Total)
				case kindHistory:
					n, err := a.History.Import(ctx, data)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Imported %d new sessions.\n", n)
				case kindCollections:
					if err := a.Collections.Import(ctx, data); err != nil {
						return err
					}
					exp := a.Collections.Export(ctx)
					fmt.Fprintf(out, "Imported %d favorites and %d lists.\n", len(exp.Favs), len(exp.Lists))
				default:
					return fmt.Errorf("unknown backup kind %q", args[0])
				}
				return nil
			})
		},
	}
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func newResetCommand(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:       "reset {deck|history}",
		Short:     "Erase the adaptive deck or the exam history",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{kindDeck, kindHistory},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset %s without --yes", args[0])
			}
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				switch args[0] {
				case kindDeck:
					if err := a.Deck.Reset(ctx); err != nil {
						return err
					}
				case kindHistory:
					if err := a.History.Clear(ctx); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset.\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

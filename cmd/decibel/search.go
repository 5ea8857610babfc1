package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fluidvision/decibel/internal/history"
	"github.com/fluidvision/decibel/internal/itunes"
	"github.com/fluidvision/decibel/internal/tui"
)

func searchCmd() *cobra.Command {
	var (
		country string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Find the best matching song on iTunes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("country") {
				cfg.Search.Country = country
			}

			client := itunes.NewClient(cfg.ToSearchOptions()...)
			return runSearch(cmd.Context(), client, strings.Join(args, " "), asJSON, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&country, "country", "c", "", "two-letter store country, e.g. us")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func runSearch(ctx context.Context, finder songFinder, term string, asJSON bool, w io.Writer) error {
	result, err := finder.FindSong(ctx, term)
	if err != nil {
		return fmt.Errorf("song search failed: %w", err)
	}

	if !asJSON {
		fmt.Fprintln(w, tui.RenderSong(result))
		return nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcripts and matched songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if path == "" {
				return fmt.Errorf("history is disabled in the configuration")
			}

			ctx := cmd.Context()
			store, err := history.Open(ctx, path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

var historyTime = lipgloss.NewStyle().Width(17)

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, tui.StyleMuted.Render("No history yet"))
		return
	}
	for _, e := range entries {
		when := historyTime.Render(e.CreatedAt.Local().Format("2006-01-02 15:04"))
		switch e.Kind {
		case history.KindMatch:
			if e.Match == nil {
				continue
			}
			line := e.Match.TrackName + " by " + e.Match.Artist
			fmt.Fprintf(w, "%s %s %s\n", tui.StyleMuted.Render(when), tui.StyleSuccess.Render("♪"), line)
		default:
			fmt.Fprintf(w, "%s %s %q\n", tui.StyleMuted.Render(when), tui.StyleMuted.Render("»"), e.Text)
		}
	}
}

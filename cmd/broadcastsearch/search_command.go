package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"broadcast-search/pkg/domain"
	"broadcast-search/pkg/search"
)

const (
	ansiHighlight = "\x1b[1;33m"
	ansiReset     = "\x1b[0m"
)

type searchOptions struct {
	subtitles bool
	full      []string
	limit     int
	selected  []string
	jsonOut   bool
}

func (o searchOptions) showFull(id string) bool {
	for _, want := range o.full {
		if want == id {
			return true
		}
	}
	return false
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search scraped episodes from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("subtitles") {
				opts.subtitles = cfg.Server.Subtitles
			}

			episodes, err := ctx.loadEpisodes(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			result := search.Search(query, episodes, search.Options{
				Subtitles: opts.subtitles,
				Selected:  opts.selected,
			})

			items := result.Items
			if opts.limit > 0 && len(items) > opts.limit {
				items = items[:opts.limit]
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeSearchJSON(out, query, result.Tokens, items, opts)
			}
			writeSearchText(out, result.Tokens, items, len(result.Items), opts, terminalHighlighter(out))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.subtitles, "subtitles", "s", false, "Also search transcripts (default from config)")
	cmd.Flags().StringSliceVar(&opts.full, "full", nil, "Show the whole transcript of these episode IDs instead of context windows")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of episodes to print (0 for all)")
	cmd.Flags().StringSliceVar(&opts.selected, "selected", nil, "Restrict the search to these episode IDs")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	return cmd
}

// terminalHighlighter marks matches with ANSI colour on terminals and with
// brackets otherwise.
func terminalHighlighter(w io.Writer) search.Highlighter {
	if file, ok := w.(*os.File); ok {
		fd := file.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return search.Highlighter{Open: ansiHighlight, Close: ansiReset}
		}
	}
	return search.Highlighter{Open: "[", Close: "]"}
}

func writeSearchText(w io.Writer, tokens []string, items []domain.Episode, total int, opts searchOptions, hl search.Highlighter) {
	if total == 0 {
		fmt.Fprintln(w, "No episodes found.")
		return
	}

	rows := make([][]string, 0, len(items))
	for _, ep := range items {
		rows = append(rows, []string{
			ep.AirDate, ep.StartTime, ep.Channel, hl.Highlight(ep.Title, tokens), yesNo(ep.HasTranscript()),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Date", "Time", "Channel", "Title", "Transcript"}, rows, nil))
	if len(items) < total {
		fmt.Fprintf(w, "Showing %d of %d episodes.\n", len(items), total)
	}

	if !opts.subtitles {
		return
	}
	for _, ep := range items {
		full := opts.showFull(ep.ID)
		windows := search.GroupCues(ep.Cues, tokens, full)
		if len(windows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s  %s %s\n", ep.Title, ep.AirDate, ep.StartTime)
		for i, win := range windows {
			if i > 0 {
				fmt.Fprintln(w, "  ...")
			}
			cues := win.Context
			if !full {
				cues = win.Cues()
			}
			for _, c := range cues {
				marker := " "
				if win.IsMatch(c.Index) {
					marker = ">"
				}
				fmt.Fprintf(w, "%s %-30s %s\n", marker, c.Time, hl.Highlight(c.Text, tokens))
			}
		}
	}
}

type jsonEpisode struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	AirDate   string          `json:"air_date"`
	StartTime string          `json:"start_time,omitempty"`
	Title     string          `json:"title"`
	URL       string          `json:"url,omitempty"`
	Windows   []search.Window `json:"windows,omitempty"`
}

func writeSearchJSON(w io.Writer, query string, tokens []string, items []domain.Episode, opts searchOptions) error {
	payload := struct {
		Query    string        `json:"query"`
		Tokens   []string      `json:"tokens"`
		Episodes []jsonEpisode `json:"episodes"`
	}{
		Query:    query,
		Tokens:   tokens,
		Episodes: make([]jsonEpisode, 0, len(items)),
	}

	for _, ep := range items {
		je := jsonEpisode{
			ID:        ep.ID,
			Channel:   ep.Channel,
			AirDate:   ep.AirDate,
			StartTime: ep.StartTime,
			Title:     ep.Title,
			URL:       ep.URL,
		}
		if opts.subtitles {
			je.Windows = search.GroupCues(ep.Cues, tokens, opts.showFull(ep.ID))
		}
		payload.Episodes = append(payload.Episodes, je)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

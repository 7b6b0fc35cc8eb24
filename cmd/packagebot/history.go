package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/packagebot/internal/config"
	"github.com/nao1215/packagebot/internal/database"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous runs",
		Long: `History reads the run database written by "packagebot run".

Examples:
  # List the last 10 runs
  packagebot history

  # Show the full report of run 7
  packagebot history --id 7

  # List only the pages run 7 failed to create
  packagebot history --id 7 --outcome failed

  # When was a page last created by packagebot?
  packagebot history --title "Category:app-misc"`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64("id", 0, "Show one run")
	cmd.Flags().IntP("limit", "n", 10, "Number of runs to list (0 lists every run)")
	cmd.Flags().String("outcome", "", "With --id, list only pages with this outcome")
	cmd.Flags().String("title", "", "Show when a page title was last created")
	cmd.Flags().BoolP("json", "J", false, "Print the run report of --id as JSON")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	id, err := flags.GetInt64("id")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	outcomeName, err := flags.GetString("outcome")
	if err != nil {
		return err
	}
	title, err := flags.GetString("title")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(dir, database.Options{})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case title != "":
		at, ok, err := db.LastCreated(ctx, title)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(out, "%s was never created by packagebot\n", title)
			return nil
		}
		fmt.Fprintf(out, "%s was last created in the run started %s\n", title, at.Local().Format(time.DateTime))
		return nil

	case id != 0 && outcomeName != "":
		var outcome model.Outcome
		if err := outcome.UnmarshalText([]byte(outcomeName)); err != nil {
			return err
		}
		pages, err := db.PageResults(ctx, id, outcome)
		if err != nil {
			return err
		}
		return writePageTable(out, pages)

	case id != 0:
		runReport, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		var w report.Writer = report.NewSimpleWriter(out, report.WithVerbose(true))
		if asJSON {
			w = report.NewJSONWriter(out, report.WithPrettyPrint())
		}
		_, err = w.Write(runReport)
		return err

	default:
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		return writeRunTable(out, runs)
	}
}

func writeRunTable(out io.Writer, runs []database.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded yet.")
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if !r.Succeeded {
			result = "incomplete"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			r.Tree,
			strconv.Itoa(r.Discovered),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Existing),
			strconv.Itoa(r.Failed),
			result,
		})
	}

	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Took", "Tree", "Found", "Created", "Existing", "Failed", "Result"},
		Rows:   rows,
	})
	return md.Build()
}

func writePageTable(out io.Writer, pages []model.PageResult) error {
	if len(pages) == 0 {
		_, err := fmt.Fprintln(out, "No matching pages.")
		return err
	}

	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{p.Title, p.Kind.String(), p.Outcome.String(), p.Error})
	}
	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{Header: []string{"Title", "Kind", "Outcome", "Error"}, Rows: rows})
	return md.Build()
}

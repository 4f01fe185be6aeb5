package speedtest

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/cubiclesoft/network-speedtest-cli/internal/state"
	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		jsonOut  bool
		plainOut bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List recorded speed test runs.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())

			db, err := state.OpenDefault(rt.Ctx())
			if err != nil {
				return err
			}

			recs, err := state.NewResultStore(db).List(rt.Ctx(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				results := make([]any, 0, len(recs))
				for _, rec := range recs {
					results = append(results, rec.Result)
				}
				return printJSON(out, results)
			}
			return renderHistory(out, recs, time.Now(), plainOut || !ui.IsTerminal(out))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the stored results as a JSON array")
	cmd.Flags().BoolVar(&plainOut, "plain", false, "print without borders or colors")

	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var (
		yes       bool
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())

			if !yes {
				question := "Delete all recorded runs?"
				if olderThan > 0 {
					question = fmt.Sprintf("Delete runs older than %s?", olderThan)
				}
				ok, err := logs.PromptConfirm(question, false)
				if err != nil {
					return err
				}
				if !ok {
					logs.Infof("Nothing deleted.")
					return nil
				}
			}

			db, err := state.OpenDefault(rt.Ctx())
			if err != nil {
				return err
			}

			n, err := clearHistory(rt.Ctx(), state.NewResultStore(db), olderThan, time.Now())
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				if err := state.NewKVStore(db).ForgetTarget(rt.Ctx()); err != nil {
					logs.Warnf("unable to forget last target: %v", err)
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s).\n", n)
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only delete runs older than this (e.g. 720h)")

	return cmd
}

// clearHistory removes every run, or only those started more than olderThan before now.
func clearHistory(ctx context.Context, store state.ResultStore, olderThan time.Duration, now time.Time) (int64, error) {
	if olderThan > 0 {
		return store.DeleteBefore(ctx, now.Add(-olderThan))
	}
	return store.Clear(ctx)
}

func renderHistory(w io.Writer, recs []state.Record, now time.Time, plain bool) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	t := ui.NewTable(
		ui.Column{Header: "ID", Align: ui.AlignRight},
		ui.Column{Header: "When"},
		ui.Column{Header: "Server", MaxWidth: 40},
		ui.Column{Header: "Latency", Align: ui.AlignRight},
		ui.Column{Header: "Download", Align: ui.AlignRight},
		ui.Column{Header: "Upload", Align: ui.AlignRight},
		ui.Column{Header: "Status"},
	)
	t.Plain = plain

	for _, rec := range recs {
		res := rec.Result

		latency, down, up := "-", "-", "-"
		if res.Latency != nil {
			latency = res.Latency.DispAvg
		}
		if res.Download != nil {
			down = humanize.FormatFloat("#,###.#", res.Download.MbitRate) + " Mbit/s"
		}
		if res.Upload != nil {
			up = humanize.FormatFloat("#,###.#", res.Upload.MbitRate) + " Mbit/s"
		}

		status := "ok"
		if !res.Success {
			status = "failed: " + res.Phase
		}

		t.AddRow(
			strconv.FormatInt(rec.ID, 10),
			humanize.RelTime(res.StartedAt, now, "ago", "from now"),
			net.JoinHostPort(res.Host, strconv.Itoa(res.Port)),
			latency,
			down,
			up,
			status,
		)
	}

	return t.Render(w)
}

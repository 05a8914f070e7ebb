package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/history"
	"github.com/Azure/hb-kit/pkg/logger"
)

// historyKeep is how many records hb keeps.
const historyKeep = 200

// record stores rec in the history of root. History is best effort; a
// failure never fails the command.
func (a *app) record(root string, rec history.Record) {
	if root == "" {
		return
	}
	store, err := history.Open(history.DefaultPath(root))
	if err != nil {
		logger.Debugf("history disabled: %v", err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Add(ctx, rec); err != nil {
		logger.Debugf("failed to record history: %v", err)
		return
	}
	if _, err := store.Prune(ctx, historyKeep); err != nil {
		logger.Debugf("failed to prune history: %v", err)
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		kind  string
		prune int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds and component checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(history.DefaultPath(cfg.RootPath))
			if err != nil {
				return err
			}
			defer store.Close()

			if cmd.Flags().Changed("prune") {
				removed, err := store.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				logger.Infof("removed %d records", removed)
				return nil
			}

			var filters []history.Filter
			if kind != "" {
				filters = append(filters, history.ByKind(history.Kind(kind)))
			}
			records, err := store.List(cmd.Context(), limit, filters...)
			if err != nil {
				return err
			}
			return printHistory(a, records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of records to show, 0 for all")
	cmd.Flags().StringVar(&kind, "kind", "", "only show build or validate records")
	cmd.Flags().IntVar(&prune, "prune", 0, "keep only this many records")
	return cmd
}

func printHistory(a *app, records []history.Record) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tOUTCOME\tCOST\tTARGET\tID")
	for _, r := range records {
		target := r.Product
		switch {
		case r.Kind == history.KindValidate:
			target = fmt.Sprintf("%d/%d passed", r.Total-r.Failed, r.Total)
		case r.Component != "":
			target = r.Component + " (" + r.Product + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Kind, r.Outcome, r.Duration.Round(time.Second), target, r.ID)
	}
	return w.Flush()
}

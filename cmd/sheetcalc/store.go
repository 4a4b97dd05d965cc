package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vogtb/sheetcalc/packages/store"
)

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.cfg.Store.Path)
}

func newSaveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Store a YAML grid file in the database under NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := readGridFile(args[1])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Save(cmd.Context(), args[0], grid)
		},
	}
}

func newLoadCommand(a *app) *cobra.Command {
	var (
		out    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "load NAME",
		Short: "Recalculate a stored grid and print it or write it to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			grid, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			grid = a.engine.Recalculate(grid)
			if out != "" {
				return writeGridFile(out, grid)
			}
			return writeGrid(cmd.OutOrStdout(), grid, asJSON)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the grid to this YAML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the grid with derived state as JSON")
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored grids, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCELLS\tUPDATED")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Cells, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(cmd.Context(), args[0])
		},
	}
}

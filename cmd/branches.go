package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"food-console/scope"
)

var selectBranch string

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List visible branches and show or change the selected one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.initScope(ctx); err != nil {
			return err
		}
		if selectBranch != "" {
			if err := a.scope.Select(ctx, selectBranch); err != nil {
				return err
			}
		}
		return printBranches(cmd.OutOrStdout(), a.scope)
	},
}

func init() {
	branchesCmd.Flags().StringVar(&selectBranch, "select", "", `branch id to select, or "all"`)
}

func printBranches(out io.Writer, m *scope.Manager) error {
	st := m.State()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tACTIVE")
	if st.AllowAll {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", marker(st.Selected == scope.All), scope.All, scope.LabelAll)
	}
	for _, b := range st.Branches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", marker(st.Selected == b.ID), b.ID, b.Name, b.IsActive)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nselected: %s\n", m.Label(st.Selected))
	return err
}

func marker(on bool) string {
	if on {
		return "*"
	}
	return ""
}

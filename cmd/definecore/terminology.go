package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"definecore/internal/terminology"
)

func newTerminologyCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "terminology",
		Aliases: []string{"ct"},
		Short:   "Manage controlled terminology packages in the blob store",
	}
	cmd.AddCommand(newTerminologyLoadCommand(opts), newTerminologyListCommand(opts))
	return cmd
}

func newTerminologyLoadCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE...",
		Short: "Store terminology packages read from JSON or YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			for _, path := range args {
				format, err := formatOf(path)
				if err != nil {
					return err
				}
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				std, err := terminology.Decode(format, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("decode %s: %w", path, err)
				}
				info, err := a.catalog.Save(cmd.Context(), std)
				if err != nil {
					return fmt.Errorf("save %s: %w", std.OID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s %s as %s (%d codelists)\n", std.OID, std.Version, info.Key, len(std.CodeLists))
			}
			return nil
		}),
	}
}

func newTerminologyListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the terminology packages available to codelists",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, _ []string) error {
			lookup := a.svc.Standards().Lookup()
			oids := make([]string, 0, len(lookup))
			for oid := range lookup {
				oids = append(oids, oid)
			}
			sort.Strings(oids)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OID\tNAME\tVERSION\tCODELISTS")
			for _, oid := range oids {
				std := lookup[oid]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", std.OID, std.Name, std.Version, len(std.CodeLists))
			}
			return tw.Flush()
		}),
	}
}

package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"definecore/pkg/define"
)

func newCodeListsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "codelists",
		Aliases: []string{"cl"},
		Short:   "Inspect and edit codelists",
	}
	cmd.AddCommand(
		newCodeListsListCommand(opts),
		newCodeListsShowCommand(opts),
		newCodeListsCreateCommand(opts),
		newCodeListsDeleteCommand(opts),
		newLinkCommand(opts),
		newSetTypeCommand(opts),
		newStandardCommand(opts),
		newAddValueCommand(opts),
		newDeleteValuesCommand(opts),
		newAssignCommand(opts),
	)
	return cmd
}

// dispatch returns a RunE applying the edits built from args in one transaction.
func dispatch(opts *options, build func(args []string) ([]define.Edit, error)) func(*cobra.Command, []string) error {
	return opts.run(func(cmd *cobra.Command, a *app, args []string) error {
		edits, err := build(args)
		if err != nil {
			return err
		}
		res, err := a.svc.Dispatch(cmd.Context(), edits...)
		if err != nil {
			return err
		}
		for _, v := range res.Violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", v.Message)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d edit(s)\n", len(edits))
		return nil
	})
}

func newCodeListsListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List codelists",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, _ []string) error {
			mdv, err := a.svc.MetaDataVersion(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(mdv.CodeLists))
			for id := range mdv.CodeLists {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OID\tNAME\tTYPE\tITEMS\tLINKED\tSTANDARD\tUSED BY")
			for _, id := range ids {
				cl := mdv.CodeLists[id]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d\n",
					cl.OID, cl.Name, cl.Type, len(cl.ItemOrder), dash(cl.LinkedCodeListOID), dash(cl.StandardOID), cl.Sources.Count())
			}
			return tw.Flush()
		}),
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newCodeListsShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show OID",
		Short: "Print a codelist as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			mdv, err := a.svc.MetaDataVersion(cmd.Context())
			if err != nil {
				return err
			}
			cl, ok := mdv.CodeLists[args[0]]
			if !ok {
				return define.ErrNotFound{Entity: define.EntityCodeList, ID: args[0]}
			}
			return writeJSON(cmd.OutOrStdout(), cl)
		}),
	}
}

func newCodeListsCreateCommand(opts *options) *cobra.Command {
	var clType, dataType string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty codelist",
		Args:  cobra.ExactArgs(1),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			t := define.CodeListType(clType)
			if !t.Valid() {
				return nil, fmt.Errorf("--type must be one of %v", define.CodeListTypes)
			}
			return []define.Edit{define.CreateCodeList{Name: args[0], Type: t, DataType: dataType}}, nil
		}),
	}
	cmd.Flags().StringVar(&clType, "type", string(define.CodeListEnumerated), "codelist type (enumerated, decoded, external)")
	cmd.Flags().StringVar(&dataType, "data-type", "text", "data type of the coded values")
	return cmd
}

func newCodeListsDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete OID...",
		Short: "Delete codelists, unlinking partners and dereferencing variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			return []define.Edit{define.DeleteCodeLists{OIDs: args}}, nil
		}),
	}
}

func newLinkCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "link OID [TARGET]",
		Short: "Link a decoded and an enumerated codelist, or unlink OID when TARGET is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			edit := define.SetLink{OID: args[0]}
			if len(args) == 2 {
				edit.Target = args[1]
			}
			return []define.Edit{edit}, nil
		}),
	}
}

func newSetTypeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-type OID TYPE",
		Short: "Convert a codelist to another type",
		Args:  cobra.ExactArgs(2),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			return []define.Edit{define.SetType{OID: args[0], Type: define.CodeListType(args[1])}}, nil
		}),
	}
}

func newStandardCommand(opts *options) *cobra.Command {
	var standardOID, submission, code string
	cmd := &cobra.Command{
		Use:   "standard OID",
		Short: "Back a codelist by a loaded terminology codelist, or remove its standard",
		Long: `Assigns the standard OID and NCI code of a codelist and aligns its coded
values with the terminology: known values take the standard alias, others are
flagged as extended values. Without --standard the standard is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			edit := define.UpdateCodeListStandard{OID: args[0], StandardOID: standardOID, SubmissionValue: submission}
			if standardOID != "" {
				if code == "" {
					return nil, fmt.Errorf("--code is required with --standard")
				}
				edit.Alias = &define.Alias{Context: define.AliasContextNCI, Name: code}
			}
			return []define.Edit{edit}, nil
		}),
	}
	cmd.Flags().StringVar(&standardOID, "standard", "", "standard OID, e.g. STD.SDTMCT.2024-03-29")
	cmd.Flags().StringVar(&code, "code", "", "NCI code of the standard codelist, e.g. C66731")
	cmd.Flags().StringVar(&submission, "submission-value", "", "submission value of the standard codelist")
	return cmd
}

func newAddValueCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-value OID VALUE...",
		Short: "Append coded values to a codelist",
		Args:  cobra.MinimumNArgs(2),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			edits := make([]define.Edit, 0, len(args)-1)
			for _, value := range args[1:] {
				edits = append(edits, define.CreateCodedValue{CodeListOID: args[0], CodedValue: value})
			}
			return edits, nil
		}),
	}
}

func newDeleteValuesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-values OID ITEM_OID...",
		Short: "Remove coded values from a codelist by item OID",
		Args:  cobra.MinimumNArgs(2),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			return []define.Edit{define.DeleteCodedValues{CodeListOID: args[0], ItemOIDs: args[1:]}}, nil
		}),
	}
}

func newAssignCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assign ITEM_DEF_OID [OID]",
		Short: "Set the codelist of a variable, or clear it when OID is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: dispatch(opts, func(args []string) ([]define.Edit, error) {
			edit := define.AssignItemDefCodeList{ItemDefOID: args[0]}
			if len(args) == 2 {
				edit.CodeListOID = args[1]
			}
			return []define.Edit{edit}, nil
		}),
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/replaysMike/Binner-sub003/internal/bom/client"
	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/inline"
	"github.com/replaysMike/Binner-sub003/internal/bom/session"
)

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid line item id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func withTimeout(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout())
}

func printBom(w io.Writer, s *session.Session) error {
	bom := s.Snapshot()
	result := s.Producibility()

	fmt.Fprintf(w, "%s (project %d)\n", bom.Name, bom.ProjectID)
	fmt.Fprintf(w, "Producible: %d    Total cost: %s\n\n", result.Count, bom.TotalCost.StringFixed(2))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PCB\tID\tQTY/BUILD\tCOUNT\tBUILDS\tLIMITED BY")
	pcbNames := map[int64]string{domain.Unassociated: "(unassociated)"}
	for _, p := range bom.Pcbs {
		pcbNames[p.PcbID] = p.Name
	}
	for _, p := range result.Pcbs {
		limit := "-"
		if p.NoPartsAssigned {
			limit = "no parts assigned"
		} else if p.LimitingItemID != nil {
			limit = strconv.FormatInt(*p.LimitingItemID, 10)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", pcbNames[p.PcbID], p.PcbID, p.Required, p.Count, p.Builds, limit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPCB\tPART\tQTY\tAVAILABLE\tCOST\tSTATE")
	for _, p := range bom.Parts {
		state := ""
		if e, err := s.Editor(p.ProjectPartAssignmentID); err == nil {
			state = e.State().String()
		}
		item := p.ToDomain()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.ProjectPartAssignmentID, pcbNames[p.PcbID], p.PartName, p.Quantity,
			domain.ResolveAvailable(item), item.Cost().StringFixed(4), state)
	}
	return tw.Flush()
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Show a BOM with its producibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			return printBom(cmd.OutOrStdout(), s)
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <project> <line-item-id> <field>=<value>...",
		Short: "Edit line item fields inline and commit them",
		Long: "Fields: quantity, quantityAvailable, cost, partName, notes, referenceId, " +
			"schematicReferenceId, customDescription. On a line item linked to an inventory " +
			"part, quantityAvailable and cost change the inventory part.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			ids, err := parseIDs(args[1:2])
			if err != nil {
				return err
			}
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			for _, kv := range args[2:] {
				name, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("expected field=value, got %q", kv)
				}
				field, err := inline.ParseField(name)
				if err != nil {
					return err
				}
				if err := s.Edit(ids[0], field, value); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			if err := s.Commit(ctx, ids[0]); err != nil {
				return fmt.Errorf("commit rejected, edit not saved: %w", err)
			}
			return printBom(cmd.OutOrStdout(), s)
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	var pcbID int64
	cmd := &cobra.Command{
		Use:   "move <project> <line-item-id>...",
		Short: "Move line items to a PCB (--pcb 0 for unassociated)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			if err := s.MoveParts(ctx, ids, pcbID); err != nil {
				return err
			}
			return printBom(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().Int64Var(&pcbID, "pcb", 0, "target PCB id")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <line-item-id>...",
		Short: "Delete line items",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteParts(ctx, ids); err != nil {
				return err
			}
			return printBom(cmd.OutOrStdout(), s)
		},
	}
}

func newProduceCmd(a *app) *cobra.Command {
	var (
		quantity     int64
		pcbs         []int64
		unassociated bool
	)
	cmd := &cobra.Command{
		Use:   "produce <project>",
		Short: "Produce BOM builds, consuming inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			produced, err := s.Produce(ctx, dto.ProduceBomRequest{
				Quantity:     quantity,
				Pcbs:         pcbs,
				Unassociated: unassociated,
			})
			if err != nil {
				if client.IsConflict(err) {
					return fmt.Errorf("not enough stock: %w", err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range produced {
				fmt.Fprintf(out, "pcb %d: %d units", p.PcbID, p.Units)
				if len(p.SerialNumbers) > 0 {
					fmt.Fprintf(out, " (%s .. %s)", p.SerialNumbers[0], p.SerialNumbers[len(p.SerialNumbers)-1])
				}
				fmt.Fprintln(out)
			}
			return printBom(out, s)
		},
	}
	cmd.Flags().Int64VarP(&quantity, "quantity", "q", 1, "number of BOM builds")
	cmd.Flags().Int64SliceVar(&pcbs, "pcb", nil, "PCB ids to produce (default all)")
	cmd.Flags().BoolVar(&unassociated, "unassociated", false, "include unassociated line items")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "download <project>",
		Short: "Export a BOM as CSV or Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			s, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			file, err := s.Download(ctx, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Filename
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(file.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", dto.FormatCSV, "csv or excel")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout (default server filename)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <keywords>...",
		Short: "Search inventory parts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, a)
			defer cancel()
			searcher := client.NewSearcher(a.client(), limit)
			parts, err := searcher.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPART NUMBER\tMPN\tQTY\tCOST\tDESCRIPTION")
			for _, p := range parts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
					p.PartID, p.PartNumber, p.ManufacturerPartNumber, p.Quantity, p.Cost.StringFixed(4), p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results (1-50)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project>",
		Short: "Show a BOM and redraw it whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadCtx, cancel := withTimeout(cmd, a)
			s, err := a.open(loadCtx, args[0])
			cancel()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printBom(out, s); err != nil {
				return err
			}
			return s.Follow(cmd.Context(), a.client(), func(err error) {
				fmt.Fprintln(out)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "reload failed:", err)
					return
				}
				_ = printBom(out, s)
			})
		},
	}
}

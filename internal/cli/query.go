package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomatolover555/windrose-ai/internal/query"
	"github.com/tomatolover555/windrose-ai/internal/storage"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

func queryCmd() *cobra.Command {
	var req query.Request
	var status string
	var itemTypes []string
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Print ranked directory entries from the stored snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				req.Query = args[0]
			}
			req.Filters.Status = types.Status(status)
			for _, t := range itemTypes {
				req.Filters.Type = append(req.Filters.Type, types.ItemType(t))
			}
			if err := req.Validate(); err != nil {
				return err
			}

			store, err := storage.NewStorage(cfg.Storage)
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			defer store.Close()

			snap, err := store.Load()
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			if snap == nil {
				snap = &types.Snapshot{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(query.Search(snap.Items, req))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (verified, likely, unverified, dead)")
	cmd.Flags().StringSliceVar(&itemTypes, "type", nil, "Filter by type (webmcp, mcp-server)")
	cmd.Flags().IntVar(&req.Filters.MinConfidence, "min-confidence", 0, "Minimum confidence")
	cmd.Flags().IntVar(&req.Limit, "limit", query.DefaultLimit, "Maximum results (1-50)")
	return cmd
}

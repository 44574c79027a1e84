package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomatolover555/windrose-ai/internal/domain"
)

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <domain-or-url>...",
		Short: "Print the directory key for each input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, raw := range args {
				host, err := domain.Normalize(raw)
				if err != nil {
					fmt.Fprintf(out, "%s\t%v\n", raw, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", raw, host)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d inputs rejected", failed, len(args))
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [model names...]",
		Short: "Download model weights into the local cache",
		Long: `Downloads the weights of the named catalog models, or of every model
when no name is given. Files already in the cache are left untouched.`,
		Example: `  # Pre-populate the whole cache
  yolodemo fetch

  # Only the two nano models
  yolodemo fetch "Yolo 8 Nano" "Yolo 11 Nano"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp(0)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			notify := func(msg string) { fmt.Fprintln(out, msg) }

			reports, err := application.Manager().Fetch(cmd.Context(), args, notify)
			for _, r := range reports {
				switch {
				case r.Err != nil:
					fmt.Fprintf(out, "✗ %s: %v\n", r.Name, r.Err)
				case r.Downloaded:
					fmt.Fprintf(out, "✓ %s → %s\n", r.Name, r.Path)
				default:
					fmt.Fprintf(out, "• %s already cached at %s\n", r.Name, r.Path)
				}
			}
			return err
		},
	}

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the detection web interface",
		Long: `Starts the web interface and JSON API.

Open the page in a browser, choose a model and upload a jpg, jpeg, png or
mp4 file. Videos show the first 10 annotated frames.`,
		Example: `  # Start server on the port from PORT (default 8080)
  yolodemo serve

  # Start server on custom port
  yolodemo serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp(port)
			if err != nil {
				return err
			}
			defer cleanup()

			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")

	return cmd
}

package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"yolodemo/internal/app"
	"yolodemo/internal/config"
	"yolodemo/internal/logger"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yolodemo",
		Short: "YOLO object detection demo server",
		Long: `yolodemo serves a small web page where you pick a YOLO model, set a
confidence threshold and upload an image or short video to see the
detected objects drawn on it.

Model weights are downloaded on first use and cached on disk.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newModelsCmd())

	return cmd
}

// openApp loads the configuration and builds the application with a file
// backed logger. The returned cleanup closes both.
func openApp(port int) (*app.App, func(), error) {
	cfg := config.Load()
	if port > 0 {
		cfg.Port = port
	}

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := application.Close(); err != nil {
			log.Warning("Cleanup failed: %v", err)
		}
		log.Close()
	}
	return application, cleanup, nil
}

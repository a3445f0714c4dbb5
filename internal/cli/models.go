package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yolodemo/internal/service"
)

func newModelsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models and their cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp(0)
			if err != nil {
				return err
			}
			defer cleanup()

			statuses, err := application.Manager().Models()
			if err != nil {
				return err
			}

			switch format {
			case "table":
				return writeModelsTable(cmd.OutOrStdout(), statuses)
			case "yaml":
				return writeModelsYAML(cmd.OutOrStdout(), statuses)
			default:
				return fmt.Errorf("unknown format %q (use table or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or yaml")

	return cmd
}

func writeModelsTable(w io.Writer, statuses []service.ModelStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILE\tCACHED\tSIZE\tDOWNLOADED")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", s.Entry.Name, s.FileName, s.Cached, humanSize(s.FileSize), shortTime(s.DownloadedAt))
	}
	return tw.Flush()
}

type modelRecord struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	File         string `yaml:"file"`
	Cached       bool   `yaml:"cached"`
	Size         int64  `yaml:"size,omitempty"`
	DownloadedAt string `yaml:"downloaded_at,omitempty"`
	LastLoadedAt string `yaml:"last_loaded_at,omitempty"`
}

// writeModelsYAML prints the same shape CATALOG_PATH files use, plus cache state.
func writeModelsYAML(w io.Writer, statuses []service.ModelStatus) error {
	records := make([]modelRecord, 0, len(statuses))
	for _, s := range statuses {
		records = append(records, modelRecord{
			Name:         s.Entry.Name,
			URL:          s.Entry.URL,
			File:         s.FileName,
			Cached:       s.Cached,
			Size:         s.FileSize,
			DownloadedAt: shortTime(s.DownloadedAt),
			LastLoadedAt: shortTime(s.LastLoadedAt),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]modelRecord{"models": records}); err != nil {
		return err
	}
	return enc.Close()
}

func humanSize(n int64) string {
	switch {
	case n <= 0:
		return "-"
	case n < 1<<20:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
}

func shortTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

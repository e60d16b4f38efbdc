package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-resume-flow/internal/layout"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/services/api/config"
)

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write the stored résumé to a JSON file",
	Long: `Write the stored résumé as JSON to <dir>/<name>_<unix-ms>.json.

With --stdout the document is written to standard output instead.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: bindOffline,
	RunE:    runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load résumé sections from a JSON file",
	Long: `Apply every known top-level section of a JSON résumé to the stored one.

Unknown keys are reported and ignored. Use "-" to read standard input.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindOffline,
	RunE:    runImport,
}

var previewCmd = &cobra.Command{
	Use:     "preview",
	Short:   "Draw the stored résumé with the active template",
	PreRunE: bindOffline,
	RunE:    runPreview,
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, importCmd, previewCmd} {
		addStorageFlags(cmd.Flags())
	}
	exportCmd.Flags().Bool("stdout", false, "write to standard output")
	previewCmd.Flags().Int("width", 100, "output width in columns")
	previewCmd.Flags().Int("template", -1, "template index to draw instead of the active one")
}

func bindOffline(cmd *cobra.Command, _ []string) error {
	bindStorageFlags(cmd.Flags())
	if viper.GetString("storage") == "memory" {
		return fmt.Errorf("%s needs a persistent storage backend", cmd.Name())
	}
	return nil
}

func offlineApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Load(viper.GetViper())
	return openApp(cmd.Context(), cfg, buildLogger(cfg.LogLevel, "api"))
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := offlineApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	snap := a.doc.Snapshot()
	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		return resume.Export(cmd.OutOrStdout(), snap)
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path := filepath.Join(dir, resume.ExportFileName(snap.Basics.Name, time.Now()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := resume.Export(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := offlineApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import: %w", err)
		}
		defer f.Close()
		r = f
	}

	res, err := resume.Import(cmd.Context(), r, a.doc)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "applied: %v\n", res.Applied)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "skipped unknown keys: %v\n", res.Skipped)
	}
	return nil
}

func runPreview(cmd *cobra.Command, _ []string) error {
	a, err := offlineApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	idx, _ := cmd.Flags().GetInt("template")
	if idx < 0 {
		idx = a.model.ActiveTemplate()
	}
	l, err := layout.RenderTemplate(a.model, a.catalog, a.registry, a.doc.Snapshot(), idx)
	if err != nil {
		return err
	}
	width, _ := cmd.Flags().GetInt("width")
	fmt.Fprint(cmd.OutOrStdout(), l.Terminal(width))
	return nil
}

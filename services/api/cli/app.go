package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-resume-flow/internal/layout"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
	"github.com/ramiqadoumi/go-resume-flow/internal/storage"
	"github.com/ramiqadoumi/go-resume-flow/services/api/config"
)

// app is the résumé state shared by serve and the offline commands.
type app struct {
	storage  *storage.Storage
	registry *sections.Registry
	model    *sections.Model
	catalog  *layout.Catalog
	doc      *resume.Document
}

// addStorageFlags registers the storage flags on fs and binds them.
func addStorageFlags(fs *pflag.FlagSet) {
	fs.String("storage", "redis", "storage backend: memory | redis | postgres")
	fs.String("redis-addr", "localhost:6379", "Redis address (host:port)")
	fs.String("postgres-dsn", "", "PostgreSQL DSN")
	fs.String("templates-file", "", "YAML file overriding the built-in templates")
}

// bindStorageFlags binds the flags added by addStorageFlags. Called from a
// command's PreRun so sibling commands do not overwrite each other's bindings.
func bindStorageFlags(fs *pflag.FlagSet) {
	bindFlag("storage", fs, "storage")
	bindFlag("redis_addr", fs, "redis-addr")
	bindFlag("postgres_dsn", fs, "postgres-dsn")
	bindFlag("templates_file", fs, "templates-file")
	_ = viper.BindEnv("postgres_dsn", "POSTGRES_DSN")
}

func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	reg := sections.DefaultRegistry()
	specs := sections.DefaultSpecs(reg)
	if cfg.TemplatesFile != "" {
		data, err := os.ReadFile(cfg.TemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("read templates: %w", err)
		}
		if specs, err = sections.ParseSpecs(data, reg); err != nil {
			return nil, fmt.Errorf("templates %s: %w", cfg.TemplatesFile, err)
		}
	}
	cat, err := layout.FromSpecs(specs)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := storage.Open(initCtx, storage.Options{
		Backend:     cfg.Storage,
		RedisAddr:   cfg.RedisAddr,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	a := &app{
		storage:  st,
		registry: reg,
		catalog:  cat,
		model: sections.NewModel(reg, sections.Configs(specs),
			sections.WithStore(st.Collection(storage.NamespaceSections)),
			sections.WithLogger(logger),
			sections.WithManagedOrder(),
		),
		doc: resume.NewDocument(st.Collection(storage.NamespaceResume), logger),
	}
	if err := a.model.Load(initCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load sections: %w", err)
	}
	if err := a.doc.Load(initCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load resume: %w", err)
	}
	return a, nil
}

func (a *app) Close() error { return a.storage.Close() }

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Seed the storefront database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var catalogSource string

func init() {
	catalogCmd.Flags().StringVarP(&catalogSource, "file", "f", "", "catalog JSON document: a local path or an http(s) URL")
	_ = catalogCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(catalogCmd)
}

// seed admin
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create the default administrator if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, gormDB, err := bootDB()
		if err != nil {
			return err
		}

		created, err := service.NewBootstrapper(repository.NewUserRepository(gormDB), service.AdminAccount{
			Email:    cfg.AdminEmail,
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
		}).EnsureAdmin(cmd.Context())
		if err != nil {
			return err
		}
		if created {
			slog.Info("admin created", "email", cfg.AdminEmail)
		} else {
			slog.Info("admin already exists", "email", cfg.AdminEmail)
		}
		return nil
	},
}

// seed catalog --file catalog.json
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Upsert categories and products from a JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadCatalog(cmd.Context(), catalogSource)
		if err != nil {
			return err
		}
		slog.Info("catalog loaded", "source", catalogSource, "categories", len(doc))

		_, gormDB, err := bootDB()
		if err != nil {
			return err
		}

		report, err := service.NewCatalogSeeder(repository.NewTransactor(gormDB)).Seed(cmd.Context(), doc)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}

		slog.Info("seed completed",
			"categories_created", report.CategoriesCreated,
			"categories_updated", report.CategoriesUpdated,
			"products_created", report.ProductsCreated,
			"products_updated", report.ProductsUpdated,
		)
		return nil
	},
}

// bootDB loads config, opens the database and brings the schema up to date.
func bootDB() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return cfg, gormDB, nil
}

func loadCatalog(ctx context.Context, source string) ([]service.CatalogSeedCategory, error) {
	var (
		body io.ReadCloser
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetch(ctx, source)
	} else {
		body, err = os.Open(source)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var doc []service.CatalogSeedCategory
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return doc, nil
}

func fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}
	return cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

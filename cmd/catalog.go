package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/model"
)

var (
	catalogAPath    string
	catalogBPath    string
	commoditiesPath string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the tariff reference catalogs",
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import reference catalogs and commodity codes from CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := catalog.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		if catalogAPath != "" {
			n, err := store.LoadCatalogCSV(ctx, model.SourcePrimary, catalogAPath)
			if err != nil {
				return err
			}
			zap.L().Info("catalog: loaded primary catalog", zap.Int("rows", n), zap.String("path", catalogAPath))
		}

		if catalogBPath != "" {
			n, err := store.LoadCatalogCSV(ctx, model.SourceSecondary, catalogBPath)
			if err != nil {
				return err
			}
			zap.L().Info("catalog: loaded secondary catalog", zap.Int("rows", n), zap.String("path", catalogBPath))
		}

		if commoditiesPath != "" {
			n, err := store.LoadCommodityCSV(ctx, commoditiesPath)
			if err != nil {
				return err
			}
			zap.L().Info("catalog: loaded commodity codes", zap.Int("rows", n), zap.String("path", commoditiesPath))
		}

		return nil
	},
}

func init() {
	catalogLoadCmd.Flags().StringVar(&catalogAPath, "catalog-a", "", "CSV path for the primary reference catalog")
	catalogLoadCmd.Flags().StringVar(&catalogBPath, "catalog-b", "", "CSV path for the secondary reference catalog")
	catalogLoadCmd.Flags().StringVar(&commoditiesPath, "commodities", "", "CSV path for the 10-digit commodity table")
	catalogCmd.AddCommand(catalogLoadCmd)
	rootCmd.AddCommand(catalogCmd)
}

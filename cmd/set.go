package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/registry"
)

func newSetCmd(a *app) *cobra.Command {
	var (
		root    string
		product string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "OHOS build settings",
		Long: heredoc.Doc(`
			Record the source root and the product to build in ohos_config.json.

			Without --product the available products are listed.
		`),
		Example: heredoc.Doc(`
			hb set --product ipcamera_hi3516dv300@hisilicon
			hb set --root /home/me/ohos
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				if cfg, err = setRoot(store, cfg, root); err != nil {
					return err
				}
			} else if err := store.Update("root_path", cfg.RootPath); err != nil {
				return err
			}

			if product == "" {
				return listProducts(a, cfg)
			}
			name, company, err := build.ParseProduct(product)
			if err != nil {
				return err
			}
			selected, err := build.SelectProduct(cfg, name, company)
			if err != nil {
				return err
			}
			if err := build.Persist(store, selected); err != nil {
				return err
			}
			logger.Infof("%s@%s selected, board %s, kernel %s", selected.Product, company, selected.Board, selected.Kernel)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "path to the source root")
	cmd.Flags().StringVarP(&product, "product", "p", "", "product to build, {product_name}@{company}")
	return cmd
}

// setRoot switches cfg and its store to root.
func setRoot(store *config.Store, cfg config.Config, root string) (config.Config, error) {
	abs, err := config.FindRoot(root)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.WithRoot(abs)
	*store = *config.NewStore(abs)
	return cfg, store.Update("root_path", abs)
}

func listProducts(a *app, cfg config.Config) error {
	vendorPath, err := cfg.VendorPath()
	if err != nil {
		return err
	}
	products, err := registry.Products(vendorPath)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		logger.Warnf("no products found in %s", vendorPath)
		return nil
	}
	fmt.Fprintln(a.out, "Available products (hb set --product <product>):")
	for _, p := range products {
		marker := " "
		if p.Name == cfg.Product && p.Path == cfg.ProductPath {
			marker = "*"
		}
		fmt.Fprintf(a.out, " %s %s\n", marker, p)
	}
	return nil
}

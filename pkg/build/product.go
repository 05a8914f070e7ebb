package build

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/device"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/registry"
)

// ParseProduct splits "name@company".
func ParseProduct(value string) (name, company string, err error) {
	name, company, ok := strings.Cut(value, "@")
	if !ok || name == "" || company == "" {
		return "", "", errors.New(errors.CodeInvalidParameter, "build",
			fmt.Sprintf("invalid product %q, expected {product_name}@{company}", value), nil)
	}
	return name, company, nil
}

// SelectProduct returns cfg switched to product name@company: product path,
// board and kernel come from the product manifest, the device path from the
// device config.gni matching the kernel.
func SelectProduct(cfg config.Config, name, company string) (config.Config, error) {
	vendorPath, err := cfg.VendorPath()
	if err != nil {
		return cfg, err
	}
	product, err := registry.FindProduct(vendorPath, name, company)
	if err != nil {
		return cfg, err
	}
	manifest, err := registry.LoadManifest(product.ManifestPath())
	if err != nil {
		return cfg, err
	}
	if manifest.Board == "" || manifest.KernelType == "" {
		return cfg, errors.New(errors.CodeManifest, "build",
			fmt.Sprintf("%s must declare board and kernel_type", product.ManifestPath()), nil)
	}

	deviceCompany := manifest.DeviceCompany
	if deviceCompany == "" {
		deviceCompany = company
	}
	boardPath := filepath.Join(cfg.RootPath, "device", deviceCompany, manifest.Board)
	devicePath, err := device.FindDevicePath(boardPath, manifest.KernelType, manifest.KernelVersion)
	if err != nil {
		return cfg, err
	}

	selected := cfg
	selected.Product = name
	selected.ProductPath = product.Path
	selected.Board = manifest.Board
	selected.Kernel = manifest.KernelType
	selected.DevicePath = devicePath
	return selected, nil
}

// Persist writes the product selection of cfg to store.
func Persist(store *config.Store, cfg config.Config) error {
	return store.UpdateAll(map[string]string{
		"root_path":    cfg.RootPath,
		"product":      cfg.Product,
		"product_path": cfg.ProductPath,
		"board":        cfg.Board,
		"kernel":       cfg.Kernel,
		"device_path":  cfg.DevicePath,
	})
}

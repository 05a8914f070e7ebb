package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"

	"github.com/Azure/hb-kit/pkg/domain/errors"
)

// Product is a product found under vendor/<company>/<product>/config.json.
type Product struct {
	Name    string
	Company string
	Path    string
}

// String renders the product as name@company.
func (p Product) String() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Company)
}

// ManifestPath is the product's config.json.
func (p Product) ManifestPath() string {
	return filepath.Join(p.Path, "config.json")
}

// ProductManifest is the content of a product config.json.
type ProductManifest struct {
	ProductName   string             `json:"product_name"`
	Board         string             `json:"board"`
	KernelType    string             `json:"kernel_type"`
	KernelVersion string             `json:"kernel_version"`
	DeviceCompany string             `json:"device_company"`
	Subsystems    []ProductSubsystem `json:"subsystems"`
}

type ProductSubsystem struct {
	Subsystem  string             `json:"subsystem"`
	Components []ProductComponent `json:"components"`
}

type ProductComponent struct {
	Component string   `json:"component"`
	Features  []string `json:"features,omitempty"`
}

// SubsystemComponents is the ordered list of component names a product
// declares for one subsystem.
type SubsystemComponents struct {
	Subsystem  string
	Components []string
}

// LoadManifest reads a product config.json.
func LoadManifest(path string) (*ProductManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeManifest, "registry", fmt.Sprintf("%s not found", path), err)
		}
		return nil, errors.New(errors.CodeIoError, "registry", fmt.Sprintf("failed to read %s", path), err)
	}
	var m ProductManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.CodeManifest, "registry", fmt.Sprintf("%s parsing error!", path), err)
	}
	return &m, nil
}

// Features returns every non-empty feature string of every declared
// component, in declaration order.
func (m *ProductManifest) Features() []string {
	var features []string
	for _, s := range m.Subsystems {
		for _, c := range s.Components {
			for _, f := range c.Features {
				if f != "" {
					features = append(features, f)
				}
			}
		}
	}
	return features
}

// Components returns the declared components grouped by subsystem. A
// non-empty filter keeps only the named subsystems. Subsystems declared
// twice are merged.
func (m *ProductManifest) Components(filter sets.Set[string]) []SubsystemComponents {
	var result []SubsystemComponents
	index := map[string]int{}
	for _, s := range m.Subsystems {
		if filter.Len() > 0 && !filter.Has(s.Subsystem) {
			continue
		}
		i, ok := index[s.Subsystem]
		if !ok {
			i = len(result)
			index[s.Subsystem] = i
			result = append(result, SubsystemComponents{Subsystem: s.Subsystem})
		}
		for _, c := range s.Components {
			result[i].Components = append(result[i].Components, c.Component)
		}
	}
	return result
}

// Products lists every product under vendorPath, sorted by company then
// directory name. Directories without a config.json naming a product are
// ignored.
func Products(vendorPath string) ([]Product, error) {
	companies, err := os.ReadDir(vendorPath)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "registry", fmt.Sprintf("failed to list %s", vendorPath), err)
	}
	var products []Product
	for _, company := range companies {
		if !company.IsDir() {
			continue
		}
		companyPath := filepath.Join(vendorPath, company.Name())
		entries, err := os.ReadDir(companyPath)
		if err != nil {
			return nil, errors.New(errors.CodeIoError, "registry", fmt.Sprintf("failed to list %s", companyPath), err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			productPath := filepath.Join(companyPath, entry.Name())
			m, err := LoadManifest(filepath.Join(productPath, "config.json"))
			if err != nil || m.ProductName == "" {
				continue
			}
			products = append(products, Product{Name: m.ProductName, Company: company.Name(), Path: productPath})
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Company != products[j].Company {
			return products[i].Company < products[j].Company
		}
		return products[i].Path < products[j].Path
	})
	return products, nil
}

// FindProduct returns the product called name from company.
func FindProduct(vendorPath, name, company string) (Product, error) {
	products, err := Products(vendorPath)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.Name == name && p.Company == company {
			return p, nil
		}
	}
	return Product{}, errors.New(errors.CodeManifest, "registry", fmt.Sprintf("product %s@%s not found", name, company), nil)
}

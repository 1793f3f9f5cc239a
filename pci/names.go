package pci

import (
	"fmt"

	"github.com/jaypipes/pcidb"
)

// Names resolves IDs to vendor and product names from a pci.ids database.
type Names struct {
	db *pcidb.PCIDB
}

// LoadNames loads the pci.ids database. An empty path searches the usual
// system locations.
func LoadNames(path string) (*Names, error) {
	var opts []*pcidb.WithOption
	if path != "" {
		opts = append(opts, pcidb.WithDirectPath(path))
	}
	db, err := pcidb.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("pci: load names: %w", err)
	}
	return &Names{db: db}, nil
}

// Vendor returns the vendor name for id, or "" if unknown.
func (n *Names) Vendor(id ID) string {
	if n == nil {
		return ""
	}
	if v, ok := n.db.Vendors[fmt.Sprintf("%04x", id.Vendor)]; ok {
		return v.Name
	}
	return ""
}

// Product returns the product name for id, or "" if unknown.
func (n *Names) Product(id ID) string {
	if n == nil {
		return ""
	}
	if p, ok := n.db.Products[fmt.Sprintf("%04x%04x", id.Vendor, id.Device)]; ok {
		return p.Name
	}
	return ""
}

// Describe returns "vendor product", falling back to the numeric ID.
func (n *Names) Describe(id ID) string {
	v, p := n.Vendor(id), n.Product(id)
	switch {
	case v != "" && p != "":
		return v + " " + p
	case v != "":
		return v + " " + id.String()
	default:
		return id.String()
	}
}

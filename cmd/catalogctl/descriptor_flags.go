package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/usecase"
)

// descriptorFlags are the product fields shared by resolve and suggest
type descriptorFlags struct {
	brand      string
	distillery string
	category   string
	variant    string
	vintage    string
	proof      string
	abv        string
	size       string
	externalID string
	upcs       []string
}

func (f *descriptorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.brand, "brand", "", "Brand")
	cmd.Flags().StringVar(&f.distillery, "distillery", "", "Distillery or producer")
	cmd.Flags().StringVar(&f.category, "category", "", "Category, e.g. bourbon")
	cmd.Flags().StringVar(&f.variant, "variant", "", "Variant flag such as \"store pick\"")
	cmd.Flags().StringVar(&f.vintage, "vintage", "", "Age in years or release year")
	cmd.Flags().StringVar(&f.proof, "proof", "", "Proof, e.g. 93 or \"93 proof\"")
	cmd.Flags().StringVar(&f.abv, "abv", "", "Alcohol by volume, e.g. 46.5%")
	cmd.Flags().StringVar(&f.size, "size", "", "Bottle size, e.g. 750ml")
	cmd.Flags().StringVar(&f.externalID, "external-id", "", "iWine id, or a feed id written as feed:<id>")
	cmd.Flags().StringArrayVar(&f.upcs, "upc", nil, "UPC code (repeatable)")
}

func (f *descriptorFlags) descriptor(args []string) domain.Descriptor {
	return usecase.DescriptorFromFields(domain.ImportRow{
		domain.FieldWine:       strings.Join(args, " "),
		domain.FieldBrand:      f.brand,
		domain.FieldProducer:   f.distillery,
		domain.FieldCategory:   f.category,
		domain.FieldVariant:    f.variant,
		domain.FieldVintage:    f.vintage,
		domain.FieldProof:      f.proof,
		domain.FieldABV:        f.abv,
		domain.FieldSize:       f.size,
		domain.FieldExternalID: f.externalID,
		domain.FieldBarcode:    strings.Join(f.upcs, " "),
	})
}

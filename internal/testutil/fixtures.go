package testutil

import "github.com/Veraticus/fieldwise/internal/model"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// SpringfieldAddress is a complete, resolvable property address.
func SpringfieldAddress() *model.Address {
	return &model.Address{
		Street1:    "123 main st",
		City:       "Springfield",
		Province:   "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

// LawnProperty is a lookup result with lot size and property type but no zoning.
func LawnProperty() *model.PropertyAttributes {
	return &model.PropertyAttributes{
		Lot:     &model.Lot{LotSize2: Ptr(5000.0)},
		Summary: &model.PropertySummary{PropertyType: Ptr("RESIDENTIAL")},
	}
}

// FullProperty populates every section the field catalog reads.
func FullProperty() *model.PropertyAttributes {
	return &model.PropertyAttributes{
		Summary: &model.PropertySummary{
			PropertyType: Ptr("RESIDENTIAL"),
			PropSubType:  Ptr("SINGLE FAMILY"),
			YearBuilt:    Ptr(1978),
		},
		Lot: &model.Lot{
			LotSize1:        Ptr(0.25),
			LotSize2:        Ptr(10890.0),
			PoolType:        Ptr("IN-GROUND"),
			SiteZoningIdent: Ptr("R1"),
		},
		Building: &model.Building{
			Size:         &model.BuildingSize{LivingSize: Ptr(2100.0)},
			Rooms:        &model.Rooms{Beds: Ptr(4.0), BathsTotal: Ptr(2.5)},
			Summary:      &model.BuildingSummary{Levels: Ptr(2.0)},
			Construction: &model.BuildingConstruction{RoofCover: Ptr("ASPHALT"), WallType: Ptr("BRICK")},
			Parking:      &model.Parking{GarageType: Ptr("ATTACHED")},
		},
		Utilities: &model.Utilities{
			HeatingType: Ptr("FORCED AIR"),
			HeatingFuel: Ptr("GAS"),
			CoolingType: Ptr("CENTRAL"),
		},
	}
}

// Package fields holds the closed catalog of enrichable property attributes
// and the per-industry policies selecting which of them an account receives.
package fields

import (
	"slices"
	"strings"

	"github.com/Veraticus/fieldwise/internal/model"
)

// Catalog keys.
const (
	PropertyType    model.FieldKey = "propertyType"
	PropertySubType model.FieldKey = "propertySubType"
	YearBuilt       model.FieldKey = "yearBuilt"
	BuildingSize    model.FieldKey = "buildingSize"
	LotSize         model.FieldKey = "lotSize"
	LotAcres        model.FieldKey = "lotAcres"
	Bedrooms        model.FieldKey = "bedrooms"
	Bathrooms       model.FieldKey = "bathrooms"
	Stories         model.FieldKey = "stories"
	HeatingType     model.FieldKey = "heatingType"
	HeatingFuel     model.FieldKey = "heatingFuel"
	CoolingType     model.FieldKey = "coolingType"
	Zoning          model.FieldKey = "zoning"
	PoolType        model.FieldKey = "poolType"
	RoofMaterial    model.FieldKey = "roofMaterial"
	WallType        model.FieldKey = "wallType"
	GarageType      model.FieldKey = "garageType"
)

// Extractor pulls one value out of a property record. It must return false
// rather than panic when any level of the record is missing.
type Extractor func(*model.PropertyAttributes) (Value, bool)

// Definition describes one enrichable custom field.
type Definition struct {
	Extract Extractor
	Key     model.FieldKey
	Label   string
}

var definitions = []Definition{
	{Key: PropertyType, Label: "Property Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.PropertyType())
	}},
	{Key: PropertySubType, Label: "Property Sub-Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.PropertySubType())
	}},
	{Key: YearBuilt, Label: "Year Built", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		year := p.YearBuilt()
		if year == nil || *year <= 0 {
			return Value{}, false
		}
		return Number(float64(*year), ""), true
	}},
	{Key: BuildingSize, Label: "Building Size", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.LivingSquareFeet(), "sq ft")
	}},
	{Key: LotSize, Label: "Lot Size", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.LotSquareFeet(), "sq ft")
	}},
	{Key: LotAcres, Label: "Lot Acres", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.LotAcres(), "acres")
	}},
	{Key: Bedrooms, Label: "Bedrooms", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.Bedrooms(), "")
	}},
	{Key: Bathrooms, Label: "Bathrooms", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.Bathrooms(), "")
	}},
	{Key: Stories, Label: "Stories", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return numberOf(p.Stories(), "")
	}},
	{Key: HeatingType, Label: "Heating Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.HeatingType())
	}},
	{Key: HeatingFuel, Label: "Heating Fuel", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.HeatingFuel())
	}},
	{Key: CoolingType, Label: "Cooling Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.CoolingType())
	}},
	{Key: Zoning, Label: "Zoning", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.Zoning())
	}},
	{Key: PoolType, Label: "Pool Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.PoolType())
	}},
	{Key: RoofMaterial, Label: "Roof Material", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.RoofCover())
	}},
	{Key: WallType, Label: "Exterior Walls", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.WallType())
	}},
	{Key: GarageType, Label: "Garage Type", Extract: func(p *model.PropertyAttributes) (Value, bool) {
		return textOf(p.GarageType())
	}},
}

var byKey = func() map[model.FieldKey]Definition {
	m := make(map[model.FieldKey]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Key] = d
	}
	return m
}()

// All returns every definition in catalog order.
func All() []Definition {
	return slices.Clone(definitions)
}

// Lookup returns the definition for key.
func Lookup(key model.FieldKey) (Definition, bool) {
	d, ok := byKey[key]
	return d, ok
}

// Label returns the human-readable name for key, or the key itself.
func Label(key model.FieldKey) string {
	if d, ok := byKey[key]; ok {
		return d.Label
	}
	return string(key)
}

// Extract applies key's extractor. Unknown keys and missing attributes
// both yield false.
func Extract(key model.FieldKey, p *model.PropertyAttributes) (Value, bool) {
	d, ok := byKey[key]
	if !ok || p == nil {
		return Value{}, false
	}
	return d.Extract(p)
}

// Order returns the catalog position of key, with unknown keys sorted last.
func Order(key model.FieldKey) int {
	for i, d := range definitions {
		if d.Key == key {
			return i
		}
	}
	return len(definitions)
}

// DefaultFields is used for unrecognized or missing categories.
var DefaultFields = []model.FieldKey{PropertyType, YearBuilt, BuildingSize, LotSize}

var policies = map[model.Category][]model.FieldKey{
	"HVAC":                           {BuildingSize, HeatingType, CoolingType, YearBuilt},
	"LAWN_CARE_AND_LAWN_MAINTENANCE": {LotSize, PropertyType, Zoning},
	"LANDSCAPING":                    {LotSize, PropertyType, Zoning},
	"SNOW_REMOVAL":                   {LotSize, PropertyType, Zoning},
	"RESIDENTIAL_CLEANING":           {BuildingSize, Bedrooms, Bathrooms, Stories},
	"CLEANING":                       {BuildingSize, Bedrooms, Bathrooms, Stories},
	"COMMERCIAL_CLEANING":            {BuildingSize, PropertyType, Stories},
	"PLUMBING":                       {YearBuilt, Bathrooms, PropertyType},
	"ELECTRICAL":                     {YearBuilt, BuildingSize, PropertyType},
	"ROOFING":                        {Stories, RoofMaterial, BuildingSize, YearBuilt},
	"WINDOW_WASHING":                 {Stories, BuildingSize, WallType},
	"PRESSURE_WASHING":               {Stories, WallType, BuildingSize},
	"PAINTING":                       {Stories, WallType, BuildingSize, YearBuilt},
	"POOL_AND_SPA":                   {PoolType, LotSize},
	"PEST_CONTROL":                   {BuildingSize, LotSize, YearBuilt},
	"HEATING_AND_AIR_CONDITIONING":   {BuildingSize, HeatingType, HeatingFuel, CoolingType, YearBuilt},
}

// ForCategory returns the ordered field keys configured for category, or
// DefaultFields when the category is empty or unrecognized.
func ForCategory(category model.Category) []model.FieldKey {
	normalized := model.Category(strings.ToUpper(strings.TrimSpace(string(category))))
	if keys, ok := policies[normalized]; ok {
		return slices.Clone(keys)
	}
	return slices.Clone(DefaultFields)
}

// Known reports whether category has its own policy.
func Known(category model.Category) bool {
	_, ok := policies[model.Category(strings.ToUpper(strings.TrimSpace(string(category))))]
	return ok
}

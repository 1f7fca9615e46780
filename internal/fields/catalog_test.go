package fields

import (
	"encoding/json"
	"testing"

	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCategory(t *testing.T) {
	tests := []struct {
		name     string
		category model.Category
		want     []model.FieldKey
	}{
		{"hvac", "HVAC", []model.FieldKey{BuildingSize, HeatingType, CoolingType, YearBuilt}},
		{"lawn care", "LAWN_CARE_AND_LAWN_MAINTENANCE", []model.FieldKey{LotSize, PropertyType, Zoning}},
		{"landscaping", "LANDSCAPING", []model.FieldKey{LotSize, PropertyType, Zoning}},
		{"snow removal", "SNOW_REMOVAL", []model.FieldKey{LotSize, PropertyType, Zoning}},
		{"residential cleaning", "RESIDENTIAL_CLEANING", []model.FieldKey{BuildingSize, Bedrooms, Bathrooms, Stories}},
		{"cleaning", "CLEANING", []model.FieldKey{BuildingSize, Bedrooms, Bathrooms, Stories}},
		{"commercial cleaning", "COMMERCIAL_CLEANING", []model.FieldKey{BuildingSize, PropertyType, Stories}},
		{"plumbing", "PLUMBING", []model.FieldKey{YearBuilt, Bathrooms, PropertyType}},
		{"electrical", "ELECTRICAL", []model.FieldKey{YearBuilt, BuildingSize, PropertyType}},
		{"roofing", "ROOFING", []model.FieldKey{Stories, RoofMaterial, BuildingSize, YearBuilt}},
		{"window washing", "WINDOW_WASHING", []model.FieldKey{Stories, BuildingSize, WallType}},
		{"pressure washing", "PRESSURE_WASHING", []model.FieldKey{Stories, WallType, BuildingSize}},
		{"painting", "PAINTING", []model.FieldKey{Stories, WallType, BuildingSize, YearBuilt}},
		{"pool and spa", "POOL_AND_SPA", []model.FieldKey{PoolType, LotSize}},
		{"pest control", "PEST_CONTROL", []model.FieldKey{BuildingSize, LotSize, YearBuilt}},
		{"heating and air", "HEATING_AND_AIR_CONDITIONING", []model.FieldKey{BuildingSize, HeatingType, HeatingFuel, CoolingType, YearBuilt}},
		{"case and whitespace insensitive", " hvac ", []model.FieldKey{BuildingSize, HeatingType, CoolingType, YearBuilt}},
		{"unknown", "DOG_GROOMING", DefaultFields},
		{"empty", "", DefaultFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForCategory(tt.category))
		})
	}
}

func TestForCategory_EveryPolicyIsKnown(t *testing.T) {
	// Keep in step with the table in TestForCategory.
	assert.Len(t, policies, 16)
	for category := range policies {
		assert.True(t, Known(category), "category %s", category)
	}
	assert.False(t, Known("DOG_GROOMING"))
}

func TestForCategory_ReturnsCopy(t *testing.T) {
	keys := ForCategory("HVAC")
	keys[0] = "mutated"
	assert.Equal(t, BuildingSize, ForCategory("HVAC")[0])
}

func TestPolicies_OnlyReferenceCatalogKeys(t *testing.T) {
	for category, keys := range policies {
		for _, key := range keys {
			_, ok := Lookup(key)
			assert.True(t, ok, "category %s references unknown key %s", category, key)
		}
	}
	for _, key := range DefaultFields {
		_, ok := Lookup(key)
		assert.True(t, ok)
	}
}

func TestExtract_MissingAtEveryLevel(t *testing.T) {
	bags := map[string]*model.PropertyAttributes{
		"nil record":     nil,
		"empty record":   {},
		"empty sections": {Summary: &model.PropertySummary{}, Lot: &model.Lot{}, Building: &model.Building{}, Utilities: &model.Utilities{}},
		"empty building parts": {Building: &model.Building{
			Size:         &model.BuildingSize{},
			Rooms:        &model.Rooms{},
			Summary:      &model.BuildingSummary{},
			Construction: &model.BuildingConstruction{},
			Parking:      &model.Parking{},
		}},
	}

	for name, bag := range bags {
		t.Run(name, func(t *testing.T) {
			for _, def := range All() {
				require.NotPanics(t, func() {
					_, ok := Extract(def.Key, bag)
					assert.False(t, ok, "field %s should be absent", def.Key)
				})
			}
		})
	}
}

func TestExtract_UnknownKey(t *testing.T) {
	_, ok := Extract("favoriteColor", &model.PropertyAttributes{})
	assert.False(t, ok)
}

func TestExtract_Values(t *testing.T) {
	raw := `{
		"summary": {"propertyType": "RESIDENTIAL", "yearBuilt": 1987},
		"lot": {"lotSize1": 0.1148, "lotSize2": 5000, "siteZoningIdent": "  "},
		"building": {
			"size": {"universalSize": 1840},
			"rooms": {"beds": 3, "bathsTotal": 2.5},
			"summary": {"levels": 2},
			"construction": {"roofCover": "ASPHALT"}
		},
		"utilities": {"heatingType": "FORCED AIR", "coolingType": "CENTRAL"}
	}`
	var bag model.PropertyAttributes
	require.NoError(t, json.Unmarshal([]byte(raw), &bag))

	want := map[model.FieldKey]string{
		PropertyType: "RESIDENTIAL",
		YearBuilt:    "1987",
		LotSize:      "5000 sq ft",
		LotAcres:     "0.1148 acres",
		BuildingSize: "1840 sq ft",
		Bedrooms:     "3",
		Bathrooms:    "2.5",
		Stories:      "2",
		RoofMaterial: "ASPHALT",
		HeatingType:  "FORCED AIR",
		CoolingType:  "CENTRAL",
	}

	for _, def := range All() {
		value, ok := Extract(def.Key, &bag)
		expected, present := want[def.Key]
		assert.Equal(t, present, ok, "presence of %s", def.Key)
		if present {
			assert.Equal(t, expected, value.String(), "value of %s", def.Key)
		}
	}

	// Blank text counts as absent.
	_, ok := Extract(Zoning, &bag)
	assert.False(t, ok)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "5000 sq ft", Number(5000, "sq ft").String())
	assert.Equal(t, "2.5", Number(2.5, "").String())
	assert.Equal(t, "RESIDENTIAL", Text("RESIDENTIAL").String())
	assert.True(t, Number(1, "").IsNumber())
	assert.False(t, Text("x").IsNumber())
}

func TestLabelAndOrder(t *testing.T) {
	assert.Equal(t, "Lot Size", Label(LotSize))
	assert.Equal(t, "mystery", Label("mystery"))
	assert.Less(t, Order(PropertyType), Order(LotSize))
	assert.Equal(t, len(All()), Order("mystery"))
}

package model

// PropertyAttributes is the property record returned by the lookup API.
// Every level is optional; accessors are safe on nil receivers.
type PropertyAttributes struct {
	Identifier *PropertyIdentifier `json:"identifier,omitempty"`
	Summary    *PropertySummary    `json:"summary,omitempty"`
	Lot        *Lot                `json:"lot,omitempty"`
	Building   *Building           `json:"building,omitempty"`
	Utilities  *Utilities          `json:"utilities,omitempty"`
}

// PropertyIdentifier holds the lookup API's own identifiers.
type PropertyIdentifier struct {
	ID      *int64  `json:"Id,omitempty"`
	FIPS    *string `json:"fips,omitempty"`
	APN     *string `json:"apn,omitempty"`
	AttomID *int64  `json:"attomId,omitempty"`
}

// PropertySummary classifies the property.
type PropertySummary struct {
	PropertyType *string `json:"propertyType,omitempty"`
	PropSubType  *string `json:"propSubType,omitempty"`
	PropClass    *string `json:"propClass,omitempty"`
	YearBuilt    *int    `json:"yearBuilt,omitempty"`
}

// Lot describes the parcel.
type Lot struct {
	LotSize1        *float64 `json:"lotSize1,omitempty"`
	LotSize2        *float64 `json:"lotSize2,omitempty"`
	PoolType        *string  `json:"poolType,omitempty"`
	SiteZoningIdent *string  `json:"siteZoningIdent,omitempty"`
}

// Building describes the main structure.
type Building struct {
	Size         *BuildingSize         `json:"size,omitempty"`
	Rooms        *Rooms                `json:"rooms,omitempty"`
	Summary      *BuildingSummary      `json:"summary,omitempty"`
	Construction *BuildingConstruction `json:"construction,omitempty"`
	Parking      *Parking              `json:"parking,omitempty"`
}

// BuildingSize holds square footage measurements.
type BuildingSize struct {
	LivingSize    *float64 `json:"livingSize,omitempty"`
	UniversalSize *float64 `json:"universalSize,omitempty"`
	BldgSize      *float64 `json:"bldgSize,omitempty"`
}

// Rooms holds room counts.
type Rooms struct {
	Beds       *float64 `json:"beds,omitempty"`
	BathsTotal *float64 `json:"bathsTotal,omitempty"`
}

// BuildingSummary holds structural summary data.
type BuildingSummary struct {
	Levels    *float64 `json:"levels,omitempty"`
	ArchStyle *string  `json:"archStyle,omitempty"`
}

// BuildingConstruction holds materials.
type BuildingConstruction struct {
	RoofCover *string `json:"roofCover,omitempty"`
	WallType  *string `json:"wallType,omitempty"`
}

// Parking holds garage data.
type Parking struct {
	GarageType *string `json:"garageType,omitempty"`
}

// Utilities holds heating and cooling systems.
type Utilities struct {
	HeatingType *string `json:"heatingType,omitempty"`
	HeatingFuel *string `json:"heatingFuel,omitempty"`
	CoolingType *string `json:"coolingType,omitempty"`
}

// PropertyType returns summary.propertyType.
func (p *PropertyAttributes) PropertyType() *string {
	if p == nil || p.Summary == nil {
		return nil
	}
	return p.Summary.PropertyType
}

// PropertySubType returns summary.propSubType.
func (p *PropertyAttributes) PropertySubType() *string {
	if p == nil || p.Summary == nil {
		return nil
	}
	return p.Summary.PropSubType
}

// YearBuilt returns summary.yearBuilt.
func (p *PropertyAttributes) YearBuilt() *int {
	if p == nil || p.Summary == nil {
		return nil
	}
	return p.Summary.YearBuilt
}

// LotSquareFeet returns lot.lotSize2.
func (p *PropertyAttributes) LotSquareFeet() *float64 {
	if p == nil || p.Lot == nil {
		return nil
	}
	return p.Lot.LotSize2
}

// LotAcres returns lot.lotSize1.
func (p *PropertyAttributes) LotAcres() *float64 {
	if p == nil || p.Lot == nil {
		return nil
	}
	return p.Lot.LotSize1
}

// Zoning returns lot.siteZoningIdent.
func (p *PropertyAttributes) Zoning() *string {
	if p == nil || p.Lot == nil {
		return nil
	}
	return p.Lot.SiteZoningIdent
}

// PoolType returns lot.poolType.
func (p *PropertyAttributes) PoolType() *string {
	if p == nil || p.Lot == nil {
		return nil
	}
	return p.Lot.PoolType
}

// LivingSquareFeet returns building.size.livingSize, falling back to universalSize.
func (p *PropertyAttributes) LivingSquareFeet() *float64 {
	if p == nil || p.Building == nil || p.Building.Size == nil {
		return nil
	}
	if p.Building.Size.LivingSize != nil {
		return p.Building.Size.LivingSize
	}
	return p.Building.Size.UniversalSize
}

// Bedrooms returns building.rooms.beds.
func (p *PropertyAttributes) Bedrooms() *float64 {
	if p == nil || p.Building == nil || p.Building.Rooms == nil {
		return nil
	}
	return p.Building.Rooms.Beds
}

// Bathrooms returns building.rooms.bathsTotal.
func (p *PropertyAttributes) Bathrooms() *float64 {
	if p == nil || p.Building == nil || p.Building.Rooms == nil {
		return nil
	}
	return p.Building.Rooms.BathsTotal
}

// Stories returns building.summary.levels.
func (p *PropertyAttributes) Stories() *float64 {
	if p == nil || p.Building == nil || p.Building.Summary == nil {
		return nil
	}
	return p.Building.Summary.Levels
}

// RoofCover returns building.construction.roofCover.
func (p *PropertyAttributes) RoofCover() *string {
	if p == nil || p.Building == nil || p.Building.Construction == nil {
		return nil
	}
	return p.Building.Construction.RoofCover
}

// WallType returns building.construction.wallType.
func (p *PropertyAttributes) WallType() *string {
	if p == nil || p.Building == nil || p.Building.Construction == nil {
		return nil
	}
	return p.Building.Construction.WallType
}

// GarageType returns building.parking.garageType.
func (p *PropertyAttributes) GarageType() *string {
	if p == nil || p.Building == nil || p.Building.Parking == nil {
		return nil
	}
	return p.Building.Parking.GarageType
}

// HeatingType returns utilities.heatingType.
func (p *PropertyAttributes) HeatingType() *string {
	if p == nil || p.Utilities == nil {
		return nil
	}
	return p.Utilities.HeatingType
}

// HeatingFuel returns utilities.heatingFuel.
func (p *PropertyAttributes) HeatingFuel() *string {
	if p == nil || p.Utilities == nil {
		return nil
	}
	return p.Utilities.HeatingFuel
}

// CoolingType returns utilities.coolingType.
func (p *PropertyAttributes) CoolingType() *string {
	if p == nil || p.Utilities == nil {
		return nil
	}
	return p.Utilities.CoolingType
}

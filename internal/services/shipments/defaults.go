package shipments

import "github.com/KierLogistics/VaultTrack/internal/models"

// Every leaf of the public view falls back to a named default from this table.
// Defaults apply field-by-field: a row with a known product type and nothing
// else still surfaces that type with the rest defaulted.
const (
	defaultProductID          = "default-shipment"
	defaultProductType        = "Gold Shipment"
	defaultWeightUnit         = "kg"
	defaultPurity             = 999.5
	defaultPurityUnit         = "999.5"
	defaultSerialNumber       = "Pending"
	defaultProductDescription = "Shipment details pending"

	defaultOriginFacility      = "Origin Facility"
	defaultOriginGuardian      = "Origin Guardian"
	defaultCurrentFacility     = "Current Facility"
	defaultCurrentGuardian     = "Current Guardian"
	defaultDestinationFacility = "Destination Facility"
	defaultRecipientName       = "Recipient Name"
	defaultRecipientContact    = "Recipient Contact"

	defaultJourneyStatus      = models.StatusPending
	defaultSecurityLevel      = "high"
	defaultVerificationStatus = "pending"
)

type locationDefaults struct {
	Address  string
	City     string
	Country  string
	Facility string
}

var (
	currentLocationDefaults = locationDefaults{
		Address:  "Processing Center",
		City:     "Processing",
		Country:  "Processing",
		Facility: "Kier Logistics Hub",
	}
	originLocationDefaults = locationDefaults{
		Address:  "Origin Location",
		City:     "Origin City",
		Country:  "Origin Country",
		Facility: "Origin Facility",
	}
	destinationLocationDefaults = locationDefaults{
		Address:  "Destination Address",
		City:     "Destination City",
		Country:  "Destination Country",
		Facility: "Destination Facility",
	}
	custodyLocationDefaults = locationDefaults{
		Address:  "Unknown",
		City:     "Unknown",
		Country:  "Unknown",
		Facility: "Unknown",
	}
)

// defaultedLocation fills missing leaves; coordinates keep their zero value.
func defaultedLocation(loc *models.Location, d locationDefaults) models.Location {
	var out models.Location
	if loc != nil {
		out = *loc
	}
	out.Address = strOr(out.Address, d.Address)
	out.City = strOr(out.City, d.City)
	out.Country = strOr(out.Country, d.Country)
	out.Facility = strOr(out.Facility, d.Facility)
	return out
}

func defaultedProduct(p *models.ProductDetails) models.ProductDetails {
	var out models.ProductDetails
	if p != nil {
		out = *p
	}
	out.ID = strOr(out.ID, defaultProductID)
	out.Type = strOr(out.Type, defaultProductType)
	out.WeightUnit = strOr(out.WeightUnit, defaultWeightUnit)
	out.Purity = floatOr(out.Purity, defaultPurity)
	out.PurityUnit = strOr(out.PurityUnit, defaultPurityUnit)
	out.SerialNumber = strOr(out.SerialNumber, defaultSerialNumber)
	out.Description = strOr(out.Description, defaultProductDescription)
	if out.Photos == nil {
		out.Photos = []string{}
	}
	return out
}

func strOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

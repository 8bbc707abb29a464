package shipments

import (
	"sort"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/models"
)

// normalizeEnhanced maps the enhanced storage shape onto the legacy one so the
// projection below only ever deals with a single shape. The flattened columns
// fold back into the delivery block (journey_status -> currentStatus,
// estimated_delivery -> estimatedDelivery).
func normalizeEnhanced(e *models.EnhancedShipment) *models.Shipment {
	if e == nil {
		return nil
	}
	return &models.Shipment{
		ID:                  e.ID,
		TrackingCode:        e.TrackingCode,
		Product:             e.Product,
		OriginLocation:      e.OriginLocation,
		OriginFacility:      e.OriginFacility,
		OriginGuardian:      e.OriginGuardian,
		PickupDate:          e.PickupDate,
		CurrentLocation:     e.CurrentLocation,
		CurrentFacility:     e.CurrentFacility,
		CurrentGuardian:     e.CurrentGuardian,
		DestinationLocation: e.DestinationLocation,
		DestinationFacility: e.DestinationFacility,
		RecipientName:       e.RecipientName,
		RecipientContact:    e.RecipientContact,
		JourneyStatus:       e.JourneyStatus,
		SecurityLevel:       e.SecurityLevel,
		VerificationStatus:  e.VerificationStatus,
		Delivery: &models.DeliveryInfo{
			EstimatedDelivery: e.EstimatedDelivery,
			CurrentStatus:     e.JourneyStatus,
		},
		Status:    e.JourneyStatus,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// placeholderShipment substitutes for a code with no shipment row in either
// shape. The view must never be partially null.
func placeholderShipment() *models.Shipment {
	return &models.Shipment{
		ID:            defaultProductID,
		Status:        models.StatusPending,
		JourneyStatus: models.StatusPending,
		Delivery:      &models.DeliveryInfo{CurrentStatus: models.StatusPending},
	}
}

// reconcile merges the shipment record (enhanced shape wins over legacy), the
// custody chain and the per-field default table into one complete view.
func reconcile(code string, enhanced *models.EnhancedShipment, legacy *models.Shipment, chain []*models.CustodyEntry, now time.Time) *models.TrackingView {
	sh := normalizeEnhanced(enhanced)
	if sh == nil {
		sh = legacy
	}
	if sh == nil {
		sh = placeholderShipment()
	}

	product := defaultedProduct(sh.Product)
	if sh.ID != "" {
		product.ID = sh.ID
	}

	var delivery models.DeliveryInfo
	if sh.Delivery != nil {
		delivery = *sh.Delivery
	}
	delivery.CurrentStatus = strOr(delivery.CurrentStatus, strOr(sh.JourneyStatus, defaultJourneyStatus))

	lastUpdated := sh.UpdatedAt
	if lastUpdated.IsZero() {
		lastUpdated = sh.CreatedAt
	}
	if lastUpdated.IsZero() {
		lastUpdated = now
	}

	return &models.TrackingView{
		TrackingCode: code,
		Product:      product,
		Origin: models.OriginInfo{
			Location:   defaultedLocation(sh.OriginLocation, originLocationDefaults),
			Facility:   strOr(sh.OriginFacility, defaultOriginFacility),
			Guardian:   strOr(sh.OriginGuardian, defaultOriginGuardian),
			PickupDate: sh.PickupDate,
		},
		CurrentLocation: defaultedLocation(sh.CurrentLocation, currentLocationDefaults),
		CurrentFacility: strOr(sh.CurrentFacility, defaultCurrentFacility),
		CurrentGuardian: strOr(sh.CurrentGuardian, defaultCurrentGuardian),
		Destination: models.DestinationInfo{
			Location:         defaultedLocation(sh.DestinationLocation, destinationLocationDefaults),
			Facility:         strOr(sh.DestinationFacility, defaultDestinationFacility),
			RecipientName:    strOr(sh.RecipientName, defaultRecipientName),
			RecipientContact: strOr(sh.RecipientContact, defaultRecipientContact),
		},
		JourneyStatus:      strOr(sh.JourneyStatus, defaultJourneyStatus),
		SecurityLevel:      strOr(sh.SecurityLevel, defaultSecurityLevel),
		VerificationStatus: strOr(sh.VerificationStatus, defaultVerificationStatus),
		CustodyChain:       reconcileChain(chain),
		Delivery:           delivery,
		LastUpdated:        lastUpdated,
	}
}

// reconcileChain orders entries ascending by timestamp and applies location
// defaults. Input order is not trusted.
func reconcileChain(chain []*models.CustodyEntry) []models.CustodyEntry {
	out := make([]models.CustodyEntry, 0, len(chain))
	for _, e := range chain {
		if e == nil {
			continue
		}
		entry := *e
		entry.Location = defaultedLocation(&entry.Location, custodyLocationDefaults)
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

package shipments

import (
	"time"

	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
)

// demoFixture is the fully-populated view returned for the reserved demo code.
// It exists for integration tests and demos and never touches the store.
func demoFixture(now time.Time) *models.TrackingView {
	londonLBMA := models.Location{
		Latitude:  51.5074,
		Longitude: -0.1278,
		Address:   "1 Threadneedle Street",
		City:      "London",
		Country:   "United Kingdom",
		Facility:  "London Bullion Market Association",
	}
	nycHub := models.Location{
		Latitude:  40.7128,
		Longitude: -74.0060,
		Address:   "123 Wall Street",
		City:      "New York",
		Country:   "USA",
		Facility:  "Kier Logistics NYC Hub",
	}
	nycVault := nycHub
	nycVault.Facility = "NYC Security Vault"
	laExchange := models.Location{
		Latitude:  34.0522,
		Longitude: -118.2437,
		Address:   "456 Main Street",
		City:      "Los Angeles",
		Country:   "USA",
		Facility:  "LA Precious Metals Exchange",
	}

	pickup := now.Add(-72 * time.Hour)
	eta := now.Add(48 * time.Hour)
	londonVault := londonLBMA
	londonVault.Facility = "LBMA Vault"

	return &models.TrackingView{
		TrackingCode: codegen.ReservedDemoCode,
		Product: models.ProductDetails{
			ID:           "test-shipment",
			Type:         "Gold Bars",
			Weight:       1.5,
			WeightUnit:   "kg",
			Purity:       999.9,
			PurityUnit:   "999.9",
			SerialNumber: "GB-2024-001",
			Photos:       []string{},
			Description:  "Test gold shipment for demonstration - High-value precious metals requiring special handling",
		},
		Origin: models.OriginInfo{
			Location:   londonLBMA,
			Facility:   "LBMA Vault",
			Guardian:   "Sarah Johnson",
			PickupDate: &pickup,
		},
		CurrentLocation: nycHub,
		CurrentFacility: "NYC Security Vault",
		CurrentGuardian: "Michael Chen",
		Destination: models.DestinationInfo{
			Location:         laExchange,
			Facility:         "LA Exchange Vault",
			RecipientName:    "Robert Williams",
			RecipientContact: "+1 (555) 123-4567",
		},
		JourneyStatus:      models.StatusInTransit,
		SecurityLevel:      "maximum",
		VerificationStatus: "verified",
		CustodyChain: []models.CustodyEntry{
			{
				ID:           "custody-1",
				GuardianID:   "guardian-1",
				GuardianName: "Sarah Johnson",
				Timestamp:    now.Add(-72 * time.Hour),
				Location:     londonVault,
				Status:       models.CustodyStatusHandover,
				Notes:        "Package received and initial security verification completed",
				Verified:     true,
			},
			{
				ID:           "custody-2",
				GuardianID:   "guardian-2",
				GuardianName: "David Brown",
				Timestamp:    now.Add(-48 * time.Hour),
				Location:     nycHub,
				Status:       models.CustodyStatusSecured,
				Notes:        "Security verification completed, package cleared for transit",
				Verified:     true,
			},
			{
				ID:           "custody-3",
				GuardianID:   "guardian-3",
				GuardianName: "Michael Chen",
				Timestamp:    now.Add(-24 * time.Hour),
				Location:     nycVault,
				Status:       models.CustodyStatusInTransit,
				Notes:        "Package in secure transit with armed escort",
				Verified:     true,
			},
		},
		Delivery: models.DeliveryInfo{
			EstimatedDelivery: &eta,
			CurrentStatus:     models.StatusInTransit,
			NextLocation:      &laExchange,
			ETAHours:          48,
		},
		LastUpdated: now,
	}
}

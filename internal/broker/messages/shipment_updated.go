package messages

import (
	"time"

	"github.com/KierLogistics/VaultTrack/internal/models"
)

// ShipmentUpdated is published to the shipment.updated topic after a courier
// update has been applied to the record store.
type ShipmentUpdated struct {
	TrackingCode   string          `json:"tracking_code"`
	Status         string          `json:"status"`
	Location       models.Location `json:"location"`
	Courier        string          `json:"courier"`
	CustodyEntryID string          `json:"custody_entry_id,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

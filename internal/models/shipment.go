package models

import "time"

// Journey/delivery statuses (webhook updates are restricted to this set minus "pending").
const (
	StatusPending   = "pending"
	StatusInTransit = "in-transit"
	StatusCustoms   = "customs"
	StatusDelayed   = "delayed"
	StatusDelivered = "delivered"
	StatusSecured   = "secured"
)

// Tracking code lifecycle.
const (
	CodeStatusActive   = "active"
	CodeStatusInactive = "inactive"
)

// Custody-level statuses. Courier webhook statuses are written into custody
// entries as-is, so stored entries may also carry "customs"/"delayed".
const (
	CustodyStatusHandover  = "handover"
	CustodyStatusInTransit = "in-transit"
	CustodyStatusSecured   = "secured"
	CustodyStatusDelivered = "delivered"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Facility  string  `json:"facility,omitempty"`
}

type ProductDetails struct {
	ID           string   `json:"id,omitempty"`
	Type         string   `json:"type"`
	Weight       float64  `json:"weight"`
	WeightUnit   string   `json:"weightUnit"`
	Purity       float64  `json:"purity"`
	PurityUnit   string   `json:"purityUnit"`
	SerialNumber string   `json:"serialNumber"`
	Photos       []string `json:"photos"`
	Description  string   `json:"description,omitempty"`
}

type DeliveryInfo struct {
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	CurrentStatus     string     `json:"currentStatus"`
	DelayReason       string     `json:"delayReason,omitempty"`
	NextLocation      *Location  `json:"nextLocation,omitempty"`
	ETAHours          float64    `json:"etaHours"`
}

// CustodyEntry is immutable once created; the chain is ordered by ascending timestamp.
type CustodyEntry struct {
	ID           string    `json:"id"`
	TrackingCode string    `json:"-"`
	GuardianID   string    `json:"guardianId"`
	GuardianName string    `json:"guardianName"`
	Timestamp    time.Time `json:"timestamp"`
	Location     Location  `json:"location"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	Verified     bool      `json:"verified"`
}

type TrackingCode struct {
	Code         string     `json:"code"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
	AccessCount  int64      `json:"accessCount"`
}

// Shipment is the legacy storage shape and, after normalization of an enhanced
// row, the only shape the reconciliation code ever sees.
type Shipment struct {
	ID                  string
	TrackingCode        string
	Product             *ProductDetails
	OriginLocation      *Location
	OriginFacility      string
	OriginGuardian      string
	PickupDate          *time.Time
	CurrentLocation     *Location
	CurrentFacility     string
	CurrentGuardian     string
	DestinationLocation *Location
	DestinationFacility string
	RecipientName       string
	RecipientContact    string
	JourneyStatus       string
	SecurityLevel       string
	VerificationStatus  string
	Delivery            *DeliveryInfo
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EnhancedShipment is the newer storage shape. It flattens the delivery block
// into columns (journey_status, estimated_delivery) and takes precedence over
// the legacy row when both exist.
type EnhancedShipment struct {
	ID                  string
	TrackingCode        string
	Product             *ProductDetails
	OriginLocation      *Location
	OriginFacility      string
	OriginGuardian      string
	PickupDate          *time.Time
	CurrentLocation     *Location
	CurrentFacility     string
	CurrentGuardian     string
	DestinationLocation *Location
	DestinationFacility string
	RecipientName       string
	RecipientContact    string
	EstimatedDelivery   *time.Time
	JourneyStatus       string
	SecurityLevel       string
	VerificationStatus  string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type OriginInfo struct {
	Location   Location   `json:"location"`
	Facility   string     `json:"facility"`
	Guardian   string     `json:"guardian"`
	PickupDate *time.Time `json:"pickupDate"`
}

type DestinationInfo struct {
	Location         Location `json:"location"`
	Facility         string   `json:"facility"`
	RecipientName    string   `json:"recipientName"`
	RecipientContact string   `json:"recipientContact"`
}

// TrackingView is the reconciled read model served on public lookups. It is
// assembled on demand and never persisted.
type TrackingView struct {
	TrackingCode       string          `json:"trackingCode"`
	Product            ProductDetails  `json:"product"`
	Origin             OriginInfo      `json:"origin"`
	CurrentLocation    Location        `json:"currentLocation"`
	CurrentFacility    string          `json:"currentFacility"`
	CurrentGuardian    string          `json:"currentGuardian"`
	Destination        DestinationInfo `json:"destination"`
	JourneyStatus      string          `json:"journeyStatus"`
	SecurityLevel      string          `json:"securityLevel"`
	VerificationStatus string          `json:"verificationStatus"`
	CustodyChain       []CustodyEntry  `json:"custodyChain"`
	Delivery           DeliveryInfo    `json:"delivery"`
	LastUpdated        time.Time       `json:"lastUpdated"`
}

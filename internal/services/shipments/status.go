package shipments

import "github.com/KierLogistics/VaultTrack/internal/models"

// Delivery state machine: pending is set at issuance, couriers then move the
// shipment between in-transit, customs and delayed until it reaches one of the
// terminal states (delivered to a recipient, or secured in a vault).

var webhookStatuses = map[string]struct{}{
	models.StatusInTransit: {},
	models.StatusCustoms:   {},
	models.StatusDelayed:   {},
	models.StatusDelivered: {},
	models.StatusSecured:   {},
}

func validWebhookStatus(status string) bool {
	_, ok := webhookStatuses[status]
	return ok
}

func isTerminal(status string) bool {
	return status == models.StatusDelivered || status == models.StatusSecured
}

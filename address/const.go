package address

// Define the valid status of a subscription address
// Active -> OnHold/Vacation/Ended
// OnHold -> Active/Ended
// Vacation -> Active/Ended
// Ended -> Active (via Reactivate, with the plan left inactive)
// PlanActive is an orthogonal gate, not a status: product-level
// transitions additionally require it to be true
const (
	StatusActive   string = "active"
	StatusOnHold          = "on_hold"
	StatusVacation        = "vacation"
	StatusEnded           = "ended"
)

// DefaultEndReason is recorded when a subscription ends without a stated reason
const DefaultEndReason = "Not specified"

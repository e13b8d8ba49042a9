package enum

// ── State machines (CHECK constrained in DB) ──

// Kitchen status values follow the wire contract used by the display clients.
const (
	KitchenStatusPending   = "pending"
	KitchenStatusPreparing = "preparing"
	KitchenStatusReady     = "ready"
	KitchenStatusCompleted = "completed"
)

// ── Borderline (CHECK constrained in DB) ──

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Derived display classifications (never persisted) ──

const (
	UrgencyNormal  = "normal"
	UrgencyWarning = "warning"
	UrgencyUrgent  = "urgent"
)

package account

// Permission codes. Roles grant them; the HTTP layer checks them.
const (
	PermManageShipments    = "logistics.manage_colis"
	PermCreateShipment     = "logistics.create_colis"
	PermUpdateStatus       = "logistics.update_statut"
	PermValidatePickup     = "logistics.validate_retrait"
	PermViewShipments      = "logistics.view_colis"
	PermTrackShipments     = "logistics.track_colis"
	PermManageUsers        = "users.manage_users"
	PermManagePayments     = "payments.manage_transactions"
	PermViewPayments       = "payments.view_transactions"
	PermMakePayment        = "payments.make_payment"
	PermViewAudit          = "audit.view_logs"
	PermCreateDeclaration  = "customs.create_declaration"
	PermApproveDeclaration = "customs.approve_declaration"
)

// AllPermissions is the static reference set loaded by the seeder.
var AllPermissions = []string{
	PermManageShipments,
	PermCreateShipment,
	PermUpdateStatus,
	PermValidatePickup,
	PermViewShipments,
	PermTrackShipments,
	PermManageUsers,
	PermManagePayments,
	PermViewPayments,
	PermMakePayment,
	PermViewAudit,
	PermCreateDeclaration,
	PermApproveDeclaration,
}

// DefaultRoles maps each built-in role to the permissions it grants.
var DefaultRoles = map[string][]string{
	RoleAdmin: {
		PermManageShipments,
		PermManageUsers,
		PermManagePayments,
		PermViewAudit,
	},
	RolePortAgent: {
		PermViewShipments,
		PermCreateShipment,
		PermUpdateStatus,
		PermValidatePickup,
	},
	RoleCustomsOfficer: {
		PermViewShipments,
		PermUpdateStatus,
		PermViewPayments,
		PermCreateDeclaration,
		PermApproveDeclaration,
	},
	RoleClient: {
		PermTrackShipments,
		PermMakePayment,
		PermViewPayments,
	},
	RoleCarrier: {
		PermTrackShipments,
	},
}

var RoleDescriptions = map[string]string{
	RoleAdmin:          "Platform administrator",
	RolePortAgent:      "Port agent handling arrivals and pickups",
	RoleCustomsOfficer: "Customs officer",
	RoleClient:         "Shipment owner",
	RoleCarrier:        "Carrier collecting shipments",
}

package auth

import "dineflow/internal/models"

type Permission string

const (
	ManageRestaurant Permission = "manage_restaurant"
	ManageStaff      Permission = "manage_staff"
	ManageMenu       Permission = "manage_menu"
	ManageOrders     Permission = "manage_orders"
	ManageTables     Permission = "manage_tables"
	Kitchen          Permission = "kitchen"
	Waiter           Permission = "waiter"
	ViewAnalytics    Permission = "view_analytics"
	ViewOrders       Permission = "view_orders"
)

// Each role is enumerated on its own; there is no inheritance between roles.
var rolePermissions = map[string]map[Permission]bool{
	models.RoleOwner: {
		ManageRestaurant: true,
		ManageStaff:      true,
		ManageMenu:       true,
		ManageOrders:     true,
		ManageTables:     true,
		Kitchen:          true,
		Waiter:           true,
		ViewAnalytics:    true,
	},
	models.RoleManager: {
		ManageMenu:    true,
		ManageOrders:  true,
		ManageTables:  true,
		Kitchen:       true,
		Waiter:        true,
		ViewAnalytics: true,
	},
	models.RoleChef: {
		Kitchen:    true,
		ViewOrders: true,
	},
	models.RoleWaiter: {
		Waiter:     true,
		ViewOrders: true,
	},
}

func CanAccess(role string, permission Permission) bool {
	return rolePermissions[role][permission]
}

// CanAccessAny is true when the role holds at least one of perms.
func CanAccessAny(role string, perms ...Permission) bool {
	for _, p := range perms {
		if CanAccess(role, p) {
			return true
		}
	}
	return false
}

// Permissions lists a role's grants, used by the session verify endpoint.
func Permissions(role string) []Permission {
	var out []Permission
	for _, p := range []Permission{ManageRestaurant, ManageStaff, ManageMenu, ManageOrders, ManageTables, Kitchen, Waiter, ViewAnalytics, ViewOrders} {
		if CanAccess(role, p) {
			out = append(out, p)
		}
	}
	return out
}

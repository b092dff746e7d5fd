package models

// Permission is a named guild permission bit
type Permission struct {
	Name string
	Bit  int64
}

// Permission bits as defined by the chat platform
var (
	PermissionKickMembers     = Permission{Name: "Kick Members", Bit: 1 << 1}
	PermissionBanMembers      = Permission{Name: "Ban Members", Bit: 1 << 2}
	PermissionAdministrator   = Permission{Name: "Administrator", Bit: 1 << 3}
	PermissionSendMessages    = Permission{Name: "Send Messages", Bit: 1 << 11}
	PermissionManageMessages  = Permission{Name: "Manage Messages", Bit: 1 << 13}
	PermissionEmbedLinks      = Permission{Name: "Embed Links", Bit: 1 << 14}
	PermissionModerateMembers = Permission{Name: "Moderate Members", Bit: 1 << 40}
)

// Missing returns the permissions from required that are not present in granted.
// Administrator implies every permission.
func Missing(granted int64, required ...Permission) []string {
	if granted&PermissionAdministrator.Bit != 0 {
		return nil
	}

	var missing []string
	for _, perm := range required {
		if granted&perm.Bit == 0 {
			missing = append(missing, perm.Name)
		}
	}
	return missing
}

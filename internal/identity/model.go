package identity

import "time"

const (
	RoleUser       = "user"
	RoleHost       = "host"
	RoleTechnician = "technician"
)

// User represents a registered account. Hosts sell Wi-Fi access and collect
// cash-in payments; users buy vouchers from their wallet.
type User struct {
	ID           string
	Phone        string
	Role         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}

package sessions

// Keys of the persisted client state. Each is independent, has no expiry
// and is only removed by an explicit clear.
const (
	KeyCredential         = "credential"
	KeyCredentialVerified = "credential_verified"
	KeyAdminActive        = "admin_active"
	KeyContainerID        = "container_id"
)

// State is a read-only view of every persisted flag.
type State struct {
	HasCredential      bool   `json:"hasCredential"`
	CredentialVerified bool   `json:"credentialVerified"`
	AdminActive        bool   `json:"adminActive"`
	ContainerID        string `json:"containerId"`
}

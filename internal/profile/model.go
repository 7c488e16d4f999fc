package profile

// Profile is the identity record of a user together with the optional
// service listing attributes. The JSON encoding is the canonical form used by
// the local durable store.
type Profile struct {
	ID    string `json:"id"`    // Provider issued, immutable once assigned
	Email string `json:"email"` // Always taken from the provider session
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"` // Account type tag, e.g. "agent"

	ServiceName  string `json:"serviceName,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Location     string `json:"location,omitempty"`
	Price        string `json:"price,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	BannerImage  string `json:"bannerImage,omitempty"`
}

// Record is a profile row as the remote profile store names it.
// Keys are column names, see the mapping table in mapping.go.
type Record map[string]any

package profile

// field is one row of the bidirectional mapping between profile store columns
// and in-memory attribute names.
type field struct {
	column    string
	attribute string
	ref       func(p *Profile) *string
}

// Email is not part of the table: it never comes from the profile store.
var fields = []field{
	{column: "id", attribute: "id", ref: func(p *Profile) *string { return &p.ID }},
	{column: "name", attribute: "name", ref: func(p *Profile) *string { return &p.Name }},
	{column: "phone", attribute: "phone", ref: func(p *Profile) *string { return &p.Phone }},
	{column: "role", attribute: "role", ref: func(p *Profile) *string { return &p.Role }},
	{column: "service_name", attribute: "serviceName", ref: func(p *Profile) *string { return &p.ServiceName }},
	{column: "bio", attribute: "bio", ref: func(p *Profile) *string { return &p.Bio }},
	{column: "location", attribute: "location", ref: func(p *Profile) *string { return &p.Location }},
	{column: "price", attribute: "price", ref: func(p *Profile) *string { return &p.Price }},
	{column: "profile_image", attribute: "profileImage", ref: func(p *Profile) *string { return &p.ProfileImage }},
	{column: "banner_image", attribute: "bannerImage", ref: func(p *Profile) *string { return &p.BannerImage }},
}

// Columns returns the profile store columns in table order.
func Columns() []string {
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.column)
	}
	return columns
}

// ColumnOf returns the profile store column for an in-memory attribute name.
func ColumnOf(attribute string) (string, bool) {
	for _, f := range fields {
		if f.attribute == attribute {
			return f.column, true
		}
	}
	return "", false
}

// AttributeOf returns the in-memory attribute name for a profile store column.
func AttributeOf(column string) (string, bool) {
	for _, f := range fields {
		if f.column == column {
			return f.attribute, true
		}
	}
	return "", false
}

// FromRecord maps a profile store record into a Profile. Columns that are
// missing, NULL or not strings leave the attribute empty. The email is set by
// the caller from the provider session.
func FromRecord(rec Record, email string) Profile {
	p := Profile{Email: email}
	for _, f := range fields {
		if v, ok := rec[f.column].(string); ok {
			*f.ref(&p) = v
		}
	}
	return p
}

// ToRecord maps a Profile into a profile store record. Empty attributes are
// left out so that they stay NULL in the store.
func ToRecord(p Profile) Record {
	rec := make(Record, len(fields))
	for _, f := range fields {
		if v := *f.ref(&p); v != "" {
			rec[f.column] = v
		}
	}
	return rec
}

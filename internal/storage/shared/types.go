package shared

// DbType identifies a storage backend
type DbType string

const (
	DbTypePostgres DbType = "postgres"
	DbTypeSqlite   DbType = "sqlite"
	DbTypeMemory   DbType = "memory"
)

func (t DbType) String() string {
	return string(t)
}

// IsValid reports whether the type names a backend the factory can build
func (t DbType) IsValid() bool {
	switch t {
	case DbTypePostgres, DbTypeSqlite, DbTypeMemory:
		return true
	default:
		return false
	}
}

// DbProviderConfig is the JSON document that selects and configures a backend.
// ExtraDetails carries backend specific settings such as "conn_str" for
// postgres or "path" for sqlite.
type DbProviderConfig struct {
	DbType       DbType                 `json:"db_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}

// String returns a detail value or the empty string when it is missing or not a string
func (c DbProviderConfig) String(key string) string {
	v, _ := c.ExtraDetails[key].(string)
	return v
}

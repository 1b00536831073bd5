package contexttool

// ContextEntry is a row in the context_entries table: an opaque
// serialized value plus free-form metadata, keyed by context_key.
type ContextEntry struct {
	ContextKey      string `gorm:"column:context_key;primaryKey"`
	SerializedValue []byte `gorm:"column:serialized_value"`
	MetadataJSON    string `gorm:"column:metadata_json"`
}

// TableName pins the GORM table name to context_entries.
func (ContextEntry) TableName() string {
	return "context_entries"
}

package schema

// CatalogRecordTable represents the 'catalog.record' table
type CatalogRecordTable struct {
	Table     string
	Key       string
	Document  string
	CreatedAt string
	UpdatedAt string
}

// CatalogRecord is the schema definition for catalog.record
var CatalogRecord = CatalogRecordTable{
	Table:     "catalog.record",
	Key:       "key",
	Document:  "document",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

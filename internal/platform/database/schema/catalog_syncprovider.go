package schema

// CatalogSyncProviderTable represents the 'catalog.syncprovider' table
type CatalogSyncProviderTable struct {
	Table     string
	Provider  string
	LastRun   string
	UpdatedAt string
}

// CatalogSyncProvider holds one run-metadata row per provider.
var CatalogSyncProvider = CatalogSyncProviderTable{
	Table:     "catalog.syncprovider",
	Provider:  "provider",
	LastRun:   "lastrun",
	UpdatedAt: "updatedat",
}

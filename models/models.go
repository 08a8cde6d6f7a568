package models

// All lists the journal entities for schema migration
func All() []any {
	return []any{
		&LeadRecord{},
		&ImportRun{},
	}
}

package model

import "time"

// DocumentCategory groups source documents into archive subfolders.
type DocumentCategory string

const (
	CategoryInvoices  DocumentCategory = "invoices"
	CategoryReceipts  DocumentCategory = "receipts"
	CategoryContracts DocumentCategory = "contracts"
)

// AllCategories lists every category a caller may request, in folder order.
var AllCategories = []DocumentCategory{CategoryInvoices, CategoryReceipts, CategoryContracts}

// Valid reports whether c is a known category.
func (c DocumentCategory) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Document represents a stored source file that may be packaged into an export.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Category    DocumentCategory `json:"category"`
	Filename    string           `json:"filename"`
	StoragePath string           `json:"storage_path"`
	Size        int64            `json:"size"`
	ContentType string           `json:"content_type"`
	SHA256      string           `json:"sha256,omitempty"`
	LinkedRef   *string          `json:"linked_ref,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

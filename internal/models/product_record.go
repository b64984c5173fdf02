// internal/models/product_record.go
package models

// ProductRecord mirrors a registry product for catalogue queries. The
// in-memory registry stays authoritative for ownership; these rows are
// written through best-effort by the registry service.
type ProductRecord struct {
	BaseModel
	TokenID      uint64 `json:"token_id" gorm:"uniqueIndex;not null"`
	Enterprise   string `json:"enterprise" gorm:"size:66;not null;index"`
	SerialNumber string `json:"serial_number" gorm:"uniqueIndex;size:255;not null"`
	PublicID     string `json:"public_id" gorm:"uniqueIndex;size:255;not null"`
	MetadataURI  string `json:"metadata_uri" gorm:"type:text"`
	IsClaimed    bool   `json:"is_claimed" gorm:"default:false"`
	Owner        string `json:"owner" gorm:"size:66;index"`
	IsForSale    bool   `json:"is_for_sale" gorm:"default:false;index"`
	Price        uint64 `json:"price" gorm:"default:0"`
}

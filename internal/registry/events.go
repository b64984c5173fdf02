// internal/registry/events.go
package registry

// Event is one of the notification payloads below. Consumers rely on
// the exact field sets for historical reconstruction, so the structs
// mirror the published interface field for field.
type Event interface {
	EventName() string
}

type ProductMinted struct {
	Enterprise   Address `json:"enterprise"`
	TokenID      uint64  `json:"token_id"`
	MetadataURI  string  `json:"metadata_uri"`
	SerialNumber string  `json:"serial_number"`
	PublicID     string  `json:"public_id"`
}

type ProductClaimed struct {
	Owner        Address `json:"owner"`
	TokenID      uint64  `json:"token_id"`
	SerialNumber string  `json:"serial_number"`
	PublicID     string  `json:"public_id"`
	MetadataURI  string  `json:"metadata_uri"`
	IsClaimed    bool    `json:"is_claimed"`
}

type ProductListedForSale struct {
	TokenID uint64 `json:"token_id"`
	Price   uint64 `json:"price"`
}

type ProductSold struct {
	TokenID uint64  `json:"token_id"`
	Seller  Address `json:"seller"`
	Buyer   Address `json:"buyer"`
	Price   uint64  `json:"price"`
}

func (ProductMinted) EventName() string        { return "ProductMinted" }
func (ProductClaimed) EventName() string       { return "ProductClaimed" }
func (ProductListedForSale) EventName() string { return "ProductListedForSale" }
func (ProductSold) EventName() string          { return "ProductSold" }

// EventSink receives events synchronously after the emitting operation
// has committed its state change. Implementations must not call back
// into the registry from Publish.
type EventSink interface {
	Publish(event Event)
}

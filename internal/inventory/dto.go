package inventory

// ItemInput carries the full set of writable item fields. Create and
// update both take the whole record; partial updates are not supported.
type ItemInput struct {
	SKU      string
	Name     string
	Qty      int
	Location string
}

// LocationSummary is one row of the per-location aggregate.
type LocationSummary struct {
	Location  string `json:"location"`
	ItemCount int64  `json:"itemCount"`
	TotalQty  int64  `json:"totalQty"`
}

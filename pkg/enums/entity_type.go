package enums

// EntityType names the aggregate an audit event refers to.
type EntityType string

const (
	EntityInventoryItem EntityType = "InventoryItem"
	EntityUser          EntityType = "User"
)

func (t EntityType) String() string {
	return string(t)
}

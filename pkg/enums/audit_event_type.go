package enums

// AuditEventType categorizes an audit trail entry.
type AuditEventType string

const (
	AuditEventCreate AuditEventType = "CREATE"
	AuditEventUpdate AuditEventType = "UPDATE"
	AuditEventDelete AuditEventType = "DELETE"
	AuditEventRead   AuditEventType = "READ"
)

func (t AuditEventType) IsValid() bool {
	switch t {
	case AuditEventCreate, AuditEventUpdate, AuditEventDelete, AuditEventRead:
		return true
	default:
		return false
	}
}

func (t AuditEventType) String() string {
	return string(t)
}

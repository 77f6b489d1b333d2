package record

import "time"

// Role classifies a registered participant node.
// The set is fixed; registration rejects anything else.
type Role string

const (
	RoleHarvester    Role = "harvester"
	RoleProcessor    Role = "processor"
	RoleTester       Role = "tester"
	RoleManufacturer Role = "manufacturer"
	RoleRegulator    Role = "regulator"
)

// Roles lists all valid roles in a stable order.
var Roles = []Role{RoleHarvester, RoleProcessor, RoleTester, RoleManufacturer, RoleRegulator}

// Valid reports whether r is a member of the fixed role set.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Capability is a permission derived from a node's role at registration.
// The role→capability mapping is fixed and immutable (see registry package).
type Capability string

const (
	CapSubmitCollection    Capability = "submit-collection"
	CapSubmitProcessing    Capability = "submit-processing"
	CapSubmitQualityTest   Capability = "submit-quality-test"
	CapSubmitManufacturing Capability = "submit-manufacturing"
	CapSubmitCompliance    Capability = "submit-compliance"
	CapReadOwn             Capability = "read-own"
	CapReadBatch           Capability = "read-batch"
	CapReadAll             Capability = "read-all"
	CapFlag                Capability = "flag"
)

// Node is a registered supply-chain participant.
//
// Nodes are created only via registration and never deleted, only
// deactivated. The capability set is computed once at registration
// from the role and never changes afterward.
type Node struct {
	ID           string            `json:"id"`
	Role         Role              `json:"role"`
	PublicKey    string            `json:"public_key"` // placeholder material, never verified
	Metadata     map[string]string `json:"metadata,omitempty"`
	Active       bool              `json:"active"`
	Capabilities []Capability      `json:"capabilities"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// Can reports whether the node's derived capability set contains c.
func (n Node) Can(c Capability) bool {
	for _, have := range n.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// EventKind enumerates the supply-chain record kinds.
type EventKind string

const (
	KindCollection    EventKind = "CollectionEvent"
	KindProcessing    EventKind = "ProcessingStep"
	KindQualityTest   EventKind = "QualityTest"
	KindManufacturing EventKind = "ManufacturingRecord"
	KindCompliance    EventKind = "ComplianceReport"
)

// Kinds lists all valid event kinds in a stable order.
var Kinds = []EventKind{KindCollection, KindProcessing, KindQualityTest, KindManufacturing, KindCompliance}

// Valid reports whether k is a member of the fixed kind set.
func (k EventKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

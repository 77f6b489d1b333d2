package registry

import (
	"slices"

	"github.com/herbtrace/ledger/internal/record"
)

// roleCapabilities is the fixed, immutable role→capability table.
// Capability sets are derived from it exactly once, at registration.
var roleCapabilities = map[record.Role][]record.Capability{
	record.RoleHarvester:    {record.CapSubmitCollection, record.CapReadOwn},
	record.RoleProcessor:    {record.CapSubmitProcessing, record.CapReadBatch},
	record.RoleTester:       {record.CapSubmitQualityTest, record.CapReadBatch},
	record.RoleManufacturer: {record.CapSubmitManufacturing, record.CapReadBatch},
	record.RoleRegulator:    {record.CapReadAll, record.CapSubmitCompliance, record.CapFlag},
}

// kindCapability maps each event kind to the capability required to
// submit it.
var kindCapability = map[record.EventKind]record.Capability{
	record.KindCollection:    record.CapSubmitCollection,
	record.KindProcessing:    record.CapSubmitProcessing,
	record.KindQualityTest:   record.CapSubmitQualityTest,
	record.KindManufacturing: record.CapSubmitManufacturing,
	record.KindCompliance:    record.CapSubmitCompliance,
}

// CapabilitiesFor returns a copy of the capability set for a role.
func CapabilitiesFor(role record.Role) []record.Capability {
	return slices.Clone(roleCapabilities[role])
}

// RequiredCapability returns the capability needed to submit events of
// the given kind.
func RequiredCapability(kind record.EventKind) (record.Capability, bool) {
	c, ok := kindCapability[kind]
	return c, ok
}

package simpleassets

// CapacityUnlimited disables the capacity check for a tenant.
const CapacityUnlimited = -1

// Defaults for the global constraint profile.
const (
	DefaultCapacity      = 500
	DefaultMaxFileSizeKB = 1024
)

// Constraint is the effective capacity/size pair for one tenant.
type Constraint struct {
	Capacity      int `json:"capacity" yaml:"capacity"`
	MaxFileSizeKB int `json:"max_size_kb" yaml:"max_size_kb"`
}

// ConstraintPolicy resolves per-tenant constraints: a tenant-specific
// override when present, else the global default. Pure lookup, no side
// effects; safe for concurrent use once constructed.
type ConstraintPolicy struct {
	def       Constraint
	overrides map[int64]Constraint
}

// NewConstraintPolicy builds a policy from a default constraint and
// per-tenant overrides. The overrides map is copied.
func NewConstraintPolicy(def Constraint, overrides map[int64]Constraint) *ConstraintPolicy {
	p := &ConstraintPolicy{
		def:       def,
		overrides: make(map[int64]Constraint, len(overrides)),
	}
	for id, c := range overrides {
		p.overrides[id] = c
	}
	return p
}

// NewDefaultConstraintPolicy returns a policy with the package defaults and
// no overrides.
func NewDefaultConstraintPolicy() *ConstraintPolicy {
	return NewConstraintPolicy(Constraint{
		Capacity:      DefaultCapacity,
		MaxFileSizeKB: DefaultMaxFileSizeKB,
	}, nil)
}

// For returns the effective constraint for the tenant.
func (p *ConstraintPolicy) For(tenantID int64) Constraint {
	if c, ok := p.overrides[tenantID]; ok {
		return c
	}
	return p.def
}

// CapacityFor returns the maximum number of live assets for the tenant.
// CapacityUnlimited means no limit.
func (p *ConstraintPolicy) CapacityFor(tenantID int64) int {
	return p.For(tenantID).Capacity
}

// MaxSizeFor returns the maximum asset file size for the tenant in kilobytes.
func (p *ConstraintPolicy) MaxSizeFor(tenantID int64) int {
	return p.For(tenantID).MaxFileSizeKB
}

package auth

import (
	"fmt"
	"slices"
	"sort"
)

// Resource names a collection that can be mutated.
type Resource string

const (
	ResourceIdeas    Resource = "ideas"
	ResourceMemories Resource = "memories"
	ResourceNotes    Resource = "notes"
	ResourceGallery  Resource = "gallery"
	ResourceMusic    Resource = "music"
)

// Op names a mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
	OpStatus Op = "status"
	OpNote   Op = "note"
)

// Resources lists every resource in display order.
var Resources = []Resource{ResourceIdeas, ResourceMemories, ResourceNotes, ResourceGallery, ResourceMusic}

// Ops lists every operation.
var Ops = []Op{OpAdd, OpEdit, OpDelete, OpStatus, OpNote}

// Policy maps each resource and operation to the roles allowed to perform it.
// Pairs not present in the policy are denied.
type Policy struct {
	rules map[Resource]map[Op][]string
}

// DefaultPolicy grants primary every operation and secondary everything but
// delete, on every resource.
func DefaultPolicy(primary, secondary string) *Policy {
	p := &Policy{rules: make(map[Resource]map[Op][]string, len(Resources))}
	for _, r := range Resources {
		ops := make(map[Op][]string, len(Ops))
		for _, op := range Ops {
			if op == OpDelete {
				ops[op] = []string{primary}
				continue
			}
			ops[op] = []string{primary, secondary}
		}
		p.rules[r] = ops
	}
	return p
}

// NewPolicy starts from DefaultPolicy and replaces the role set of every
// resource/operation pair named in overrides. Unknown names are an error.
func NewPolicy(primary, secondary string, overrides map[string]map[string][]string) (*Policy, error) {
	p := DefaultPolicy(primary, secondary)

	for _, res := range sortedKeys(overrides) {
		r := Resource(res)
		if !slices.Contains(Resources, r) {
			return nil, fmt.Errorf("roles: unknown resource %q", res)
		}
		for op, roles := range overrides[res] {
			o := Op(op)
			if !slices.Contains(Ops, o) {
				return nil, fmt.Errorf("roles.%s: unknown operation %q", res, op)
			}
			p.rules[r][o] = slices.Clone(roles)
		}
	}
	return p, nil
}

// Allowed reports whether role may perform op on r.
func (p *Policy) Allowed(role string, r Resource, op Op) bool {
	return slices.Contains(p.rules[r][op], role)
}

// Authorize returns ErrForbidden unless pr may perform op on r.
func (p *Policy) Authorize(pr Principal, r Resource, op Op) error {
	if err := RequireRole(pr, p.rules[r][op]); err != nil {
		return fmt.Errorf("%s %s as %q: %w", op, r, pr.Role, err)
	}
	return nil
}

// Permissions lists, per resource, the operations role may perform.
// Resources with no allowed operation are left out.
func (p *Policy) Permissions(role string) map[Resource][]Op {
	out := make(map[Resource][]Op)
	for _, r := range Resources {
		for _, op := range Ops {
			if p.Allowed(role, r, op) {
				out[r] = append(out[r], op)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package native

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// ErrNoOrganization is returned when the address has no organization.
var ErrNoOrganization = errors.New("organization not found")

// Organization is a group of addresses that witness together. The
// organization address is a witness when Threshold members signed.
type Organization struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Address   database.Address   `json:"address"`
	Members   []database.Address `json:"members"`
	Threshold int                `json:"threshold"`
}

// IsMember reports if the address belongs to the organization.
func (o Organization) IsMember(addr database.Address) bool {
	for _, m := range o.Members {
		if m == addr {
			return true
		}
	}
	return false
}

// OrganizationAddress returns the address derived from the organization id.
func OrganizationAddress(id string) database.Address {
	return database.SystemAddress("org." + id)
}

var organizations = contract.NewMap[Organization](OrganizationName, "entries")

func newOrganization() *contract.Native {
	methods := []contract.Method{
		{
			Name:       "CreateOrganization",
			Parameters: []vm.Parameter{param("creator", vm.TypeAddress), param("id", vm.TypeText), param("name", vm.TypeText), param("threshold", vm.TypeNumber)},
			Returns:    vm.TypeAddress,
			Gas:        100,
			Handler:    createOrganization,
		},
		{
			Name:       "AddMember",
			Parameters: []vm.Parameter{param("organization", vm.TypeAddress), param("member", vm.TypeAddress)},
			Gas:        50,
			Handler:    addMember,
		},
		{
			Name:       "RemoveMember",
			Parameters: []vm.Parameter{param("organization", vm.TypeAddress), param("member", vm.TypeAddress)},
			Gas:        50,
			Handler:    removeMember,
		},
		{
			Name:       "IsMember",
			Parameters: []vm.Parameter{param("organization", vm.TypeAddress), param("address", vm.TypeAddress)},
			Returns:    vm.TypeBool,
			Gas:        5,
			Handler:    isMember,
		},
		{
			Name:       "GetMembers",
			Parameters: []vm.Parameter{param("organization", vm.TypeAddress)},
			Returns:    vm.TypeBytes,
			Gas:        10,
			Handler:    getMembers,
		},
	}

	return contract.NewNative(OrganizationName, methods, organizations)
}

func createOrganization(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	creator, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	id, err := textArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	name, err := textArg(args, 2)
	if err != nil {
		return vm.None(), err
	}
	threshold, err := args[3].AsUint64()
	if err != nil {
		return vm.None(), err
	}

	if !validName.MatchString(id) {
		return vm.None(), fmt.Errorf("invalid organization id %q", id)
	}
	if threshold == 0 {
		return vm.None(), errors.New("organization threshold must be at least one")
	}
	if err := requireWitness(rt, creator); err != nil {
		return vm.None(), err
	}

	org := Organization{
		ID:        id,
		Name:      name,
		Address:   OrganizationAddress(id),
		Members:   []database.Address{creator},
		Threshold: int(threshold),
	}

	st := rt.Storage()
	exists, err := organizations.Has(st, org.Address.String())
	if err != nil {
		return vm.None(), err
	}
	if exists {
		return vm.None(), fmt.Errorf("organization %s already exists", id)
	}

	if err := organizations.Set(st, org.Address.String(), org); err != nil {
		return vm.None(), err
	}

	if err := rt.Notify(database.EventOrganizationCreate, org.Address, []byte(id)); err != nil {
		return vm.None(), err
	}
	return vm.Address(org.Address), nil
}

func addMember(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	org, member, err := organizationArgs(rt, args)
	if err != nil {
		return vm.None(), err
	}

	if !member.IsUser() {
		return vm.None(), fmt.Errorf("member %s must be a user address", member)
	}
	if org.IsMember(member) {
		return vm.None(), fmt.Errorf("%s is already a member of %s", member, org.ID)
	}

	org.Members = append(org.Members, member)
	if err := organizations.Set(rt.Storage(), org.Address.String(), org); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventOrganizationAdd, org.Address, []byte(member.String()))
}

func removeMember(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	org, member, err := organizationArgs(rt, args)
	if err != nil {
		return vm.None(), err
	}

	members := make([]database.Address, 0, len(org.Members))
	for _, m := range org.Members {
		if m != member {
			members = append(members, m)
		}
	}
	if len(members) == len(org.Members) {
		return vm.None(), fmt.Errorf("%s is not a member of %s", member, org.ID)
	}
	if len(members) < org.Threshold {
		return vm.None(), fmt.Errorf("removing %s leaves %s below its threshold", member, org.ID)
	}

	org.Members = members
	if err := organizations.Set(rt.Storage(), org.Address.String(), org); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventOrganizationRemove, org.Address, []byte(member.String()))
}

// organizationArgs loads the organization and member arguments and checks
// the organization witnessed the change.
func organizationArgs(rt contract.Runtime, args []vm.Value) (Organization, database.Address, error) {
	orgAddr, err := addressArg(args, 0)
	if err != nil {
		return Organization{}, database.NullAddress, err
	}
	member, err := addressArg(args, 1)
	if err != nil {
		return Organization{}, database.NullAddress, err
	}

	org, err := OrganizationOf(rt.Storage(), orgAddr)
	if err != nil {
		return Organization{}, database.NullAddress, err
	}

	if err := requireWitness(rt, orgAddr); err != nil {
		return Organization{}, database.NullAddress, err
	}

	return org, member, nil
}

func isMember(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	orgAddr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	addr, err := addressArg(args, 1)
	if err != nil {
		return vm.None(), err
	}

	org, err := OrganizationOf(rt.Storage(), orgAddr)
	if err != nil {
		if errors.Is(err, ErrNoOrganization) {
			return vm.Bool(false), nil
		}
		return vm.None(), err
	}
	return vm.Bool(org.IsMember(addr)), nil
}

func getMembers(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	orgAddr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	org, err := OrganizationOf(rt.Storage(), orgAddr)
	if err != nil {
		return vm.None(), err
	}

	data, err := json.Marshal(org.Members)
	if err != nil {
		return vm.None(), err
	}
	return vm.Bytes(data), nil
}

// =============================================================================

// OrganizationOf returns the organization registered at the address.
func OrganizationOf(st contract.Storage, addr database.Address) (Organization, error) {
	org, found, err := organizations.Get(st, addr.String())
	if err != nil {
		return Organization{}, err
	}
	if !found {
		return Organization{}, fmt.Errorf("%w: %s", ErrNoOrganization, addr)
	}
	return org, nil
}

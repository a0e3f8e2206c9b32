package models

import "encoding/gob"

// init registers every concrete variant of this package's interface-based
// sum types (PolicyType, PolicyTarget, PolicyValue, SidOrId) so gob can
// encode and decode them when they appear as struct fields.
func init() {
	gob.Register(SecurityPolicyType{})
	gob.Register(RegistryPolicyType{})
	gob.Register(ScriptPolicyType{})
	gob.Register(NetworkPolicyType{})
	gob.Register(SoftwarePolicyType{})
	gob.Register(FolderRedirectionPolicyType{})
	gob.Register(CustomPolicyType{})

	gob.Register(AllTarget{})
	gob.Register(DomainTarget{})
	gob.Register(OUTarget{})
	gob.Register(GroupTarget{})
	gob.Register(UserTarget{})

	gob.Register(StringValue{})
	gob.Register(IntValue{})
	gob.Register(BoolValue{})
	gob.Register(ListValue{})
	gob.Register(BinaryValue{})

	gob.Register(SidRef{})
	gob.Register(IDRef{})
}

package ldapproto

import "testing"

func testEntry() map[string][]string {
	return map[string][]string{
		"objectClass":    {"top", "person", "user"},
		"sAMAccountName": {"bob"},
		"mail":           {"bob@example.test"},
		"tokenGroups":    {"S-1-5-21-1-2-3-1105"},
	}
}

func TestParseEquality(t *testing.T) {
	f, err := Parse("(sAMAccountName=bob)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Matches(testEntry()) {
		t.Fatal("expected match")
	}
}

func TestParseAndOr(t *testing.T) {
	f, err := Parse("(&(objectClass=user)(|(mail=nobody@example.test)(sAMAccountName=bob)))")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Matches(testEntry()) {
		t.Fatal("expected match")
	}
}

func TestParseNot(t *testing.T) {
	f, err := Parse("(!(sAMAccountName=bob))")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Matches(testEntry()) {
		t.Fatal("expected no match")
	}
}

func TestParsePresent(t *testing.T) {
	f, err := Parse("(mail=*)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Matches(testEntry()) {
		t.Fatal("expected match")
	}
}

func TestAttributeAliasCanonicalization(t *testing.T) {
	f, err := Parse("(samaccountname=bob)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Matches(testEntry()) {
		t.Fatal("expected match via canonicalized attribute name")
	}
}

func TestTokenGroupsPresentReflectsEntry(t *testing.T) {
	present, err := Parse("(tokenGroups=*)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !present.Matches(testEntry()) {
		t.Fatal("expected match: entry carries a non-empty tokenGroups")
	}

	empty := map[string][]string{"objectClass": {"user"}}
	if present.Matches(empty) {
		t.Fatal("expected no match: entry has no tokenGroups attribute")
	}
}

func TestTokenGroupsEquality(t *testing.T) {
	eq, err := Parse("(tokenGroups=S-1-5-21-1-2-3-1105)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !eq.Matches(testEntry()) {
		t.Fatal("expected match against the SID actually present in tokenGroups")
	}

	other, err := Parse("(tokenGroups=S-1-5-21-9-9-9-9999)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if other.Matches(testEntry()) {
		t.Fatal("expected no match against an unrelated SID")
	}
}

func TestBEREncodeDecodeRoundTrip(t *testing.T) {
	msg := Sequence(
		Integer(7),
		Application(AppBindResponse,
			Enumerated(0),
			OctetStringFromString(""),
			OctetStringFromString(""),
		),
	)
	encoded := Encode(msg)
	decoded, err := DecodeAll(encoded)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected one top-level element, got %d", len(decoded))
	}
	root := decoded[0]
	if root.Tag != TagSequence || !root.Constructed {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Int() != 7 {
		t.Fatalf("messageID: got %d, want 7", root.Children[0].Int())
	}
	op := root.Children[1]
	if op.Class != ClassApplication || op.Tag != AppBindResponse {
		t.Fatalf("unexpected protocolOp: %+v", op)
	}
	if op.Children[0].Int() != 0 {
		t.Fatalf("resultCode: got %d, want 0", op.Children[0].Int())
	}
}

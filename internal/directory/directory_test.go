package directory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/models"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	key, err := raddb.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	svc, err := Open(t.TempDir(), key, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func newTestUser(username string) *models.User {
	id := uuid.New()
	return &models.User{
		ID:                 id,
		SID:                models.NewNTAuthoritySID(1000),
		Username:           username,
		UserPrincipalName:  username + "@example.test",
		Enabled:            true,
		LastPasswordChange: time.Now().UTC(),
	}
}

func TestCreateAndGetUser(t *testing.T) {
	svc := newTestService(t)
	user := newTestUser("alice")
	if err := svc.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := svc.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil || got.Username != "alice" {
		t.Fatalf("got %+v", got)
	}

	byName, err := svc.FindUserByUsername("alice")
	if err != nil || byName == nil || byName.ID != user.ID {
		t.Fatalf("FindUserByUsername: %+v, %v", byName, err)
	}
}

func TestCreateUserRejectsUsernameCollision(t *testing.T) {
	svc := newTestService(t)
	if err := svc.CreateUser(newTestUser("bob")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := svc.CreateUser(newTestUser("bob"))
	if err == nil {
		t.Fatal("expected collision error")
	}
	directoryErr, ok := err.(*Error)
	if !ok || directoryErr.Kind != ErrAlreadyExists {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteUserRemovesGroupMembership(t *testing.T) {
	svc := newTestService(t)
	user := newTestUser("carol")
	if err := svc.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	group := models.NewGroup("Engineers", "ENGINEERS", uuid.New(), models.GroupTypeSecurity, models.GroupScopeGlobal)
	if err := svc.CreateGroup(&group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddMemberToGroup(group.ID, user.ID); err != nil {
		t.Fatalf("AddMemberToGroup: %v", err)
	}

	if err := svc.DeleteUser(user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	groups, err := svc.FindGroupsByMember(user.ID)
	if err != nil {
		t.Fatalf("FindGroupsByMember: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups after delete, got %d", len(groups))
	}

	reloaded, err := svc.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if reloaded.HasMember(user.ID) {
		t.Fatal("expected group membership removed")
	}
}

// TestGPOResolutionFollowsAlgorithmNotNarrative exercises the three-level OU
// chain root -> child -> grandchild, each with one directly linked GPO, and
// checks that resolution orders grandchild-first then walks upward, and that
// enabling block_inheritance on the grandchild does NOT change the result
// (its own first iteration has nothing yet accumulated, and neither child
// nor root carries block_inheritance in this scenario).
func TestGPOResolutionFollowsAlgorithmNotNarrative(t *testing.T) {
	svc := newTestService(t)

	root := models.NewOU("Root", "OU=Root", nil)
	if err := svc.CreateOU(&root); err != nil {
		t.Fatalf("CreateOU root: %v", err)
	}
	child := models.NewOU("Child", "OU=Child,OU=Root", &root.ID)
	if err := svc.CreateOU(&child); err != nil {
		t.Fatalf("CreateOU child: %v", err)
	}
	grandchild := models.NewOU("Grandchild", "OU=Grandchild,OU=Child,OU=Root", &child.ID)
	if err := svc.CreateOU(&grandchild); err != nil {
		t.Fatalf("CreateOU grandchild: %v", err)
	}

	gpoA := models.NewGroupPolicy("A")
	gpoA.Target = models.OUTarget{OUID: root.ID}
	gpoA.LinkTo(root.ID)
	if err := svc.CreateGPO(&gpoA); err != nil {
		t.Fatalf("CreateGPO A: %v", err)
	}
	if err := svc.LinkGPOToOU(gpoA.ID, root.ID); err != nil {
		t.Fatalf("LinkGPOToOU A/root: %v", err)
	}

	gpoB := models.NewGroupPolicy("B")
	gpoB.Target = models.OUTarget{OUID: child.ID}
	gpoB.LinkTo(child.ID)
	if err := svc.CreateGPO(&gpoB); err != nil {
		t.Fatalf("CreateGPO B: %v", err)
	}
	if err := svc.LinkGPOToOU(gpoB.ID, child.ID); err != nil {
		t.Fatalf("LinkGPOToOU B/child: %v", err)
	}

	gpoC := models.NewGroupPolicy("C")
	gpoC.Target = models.OUTarget{OUID: grandchild.ID}
	gpoC.LinkTo(grandchild.ID)
	if err := svc.CreateGPO(&gpoC); err != nil {
		t.Fatalf("CreateGPO C: %v", err)
	}
	if err := svc.LinkGPOToOU(gpoC.ID, grandchild.ID); err != nil {
		t.Fatalf("LinkGPOToOU C/grandchild: %v", err)
	}

	assertOrder := func(t *testing.T, got []models.GroupPolicy, want []string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("got %d GPOs, want %d", len(got), len(want))
		}
		for i, name := range want {
			if got[i].Name != name {
				t.Fatalf("position %d: got %s, want %s", i, got[i].Name, name)
			}
		}
	}

	effective, err := svc.GetEffectiveGPOsForOU(grandchild.ID)
	if err != nil {
		t.Fatalf("GetEffectiveGPOsForOU: %v", err)
	}
	assertOrder(t, effective, []string{"C", "B", "A"})

	if err := svc.SetBlockInheritance(grandchild.ID, true); err != nil {
		t.Fatalf("SetBlockInheritance: %v", err)
	}
	afterBlock, err := svc.GetEffectiveGPOsForOU(grandchild.ID)
	if err != nil {
		t.Fatalf("GetEffectiveGPOsForOU after block: %v", err)
	}
	assertOrder(t, afterBlock, []string{"C", "B", "A"})
}

func TestLinkGPOToOUIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ou := models.NewOU("Sales", "OU=Sales", nil)
	if err := svc.CreateOU(&ou); err != nil {
		t.Fatalf("CreateOU: %v", err)
	}
	gpo := models.NewGroupPolicy("Sales Policy")
	gpo.LinkTo(ou.ID)
	if err := svc.CreateGPO(&gpo); err != nil {
		t.Fatalf("CreateGPO: %v", err)
	}

	if err := svc.LinkGPOToOU(gpo.ID, ou.ID); err != nil {
		t.Fatalf("LinkGPOToOU: %v", err)
	}
	if err := svc.LinkGPOToOU(gpo.ID, ou.ID); err != nil {
		t.Fatalf("LinkGPOToOU (again): %v", err)
	}

	reloaded, err := svc.GetOU(ou.ID)
	if err != nil {
		t.Fatalf("GetOU: %v", err)
	}
	if len(reloaded.LinkedGPOs) != 1 {
		t.Fatalf("expected exactly one linked GPO, got %d", len(reloaded.LinkedGPOs))
	}
}

package serverdb

import (
	"errors"
	"testing"
	"time"
)

func futureExpiry() int64 {
	return time.Now().Add(24 * time.Hour).Unix()
}

func TestInviteAcceptFlow(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	inv, token, err := db.CreateInvite(id, "Bob@Example.com", RoleEditor, alice, futureExpiry())
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if inv.Email != "bob@example.com" {
		t.Errorf("email not normalized: %q", inv.Email)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	if err := db.ConsumeInvite(id, "bob@example.com", token, bob); err != nil {
		t.Fatalf("consume: %v", err)
	}

	role, _ := db.GetWorkspaceRole(bob, id)
	if role != RoleEditor {
		t.Errorf("role = %q, want editor", role)
	}
	u, _ := db.GetUserByID(bob)
	if u.ActiveWorkspaceID != id {
		t.Errorf("invited workspace not activated: %q", u.ActiveWorkspaceID)
	}

	invites, _ := db.ListInvites(id)
	if len(invites) != 1 || invites[0].Status != InviteStatusAccepted {
		t.Errorf("invites = %+v", invites)
	}
}

func TestInviteReuseRejected(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	_, token, _ := db.CreateInvite(id, "bob@example.com", RoleViewer, alice, futureExpiry())

	if err := db.ConsumeInvite(id, "bob@example.com", token, bob); err != nil {
		t.Fatal(err)
	}
	err := db.ConsumeInvite(id, "bob@example.com", token, bob)
	if !errors.Is(err, ErrInviteAlreadyUsed) {
		t.Errorf("got %v, want ErrInviteAlreadyUsed", err)
	}
}

func TestInviteTokenMismatch(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	db.CreateInvite(id, "bob@example.com", RoleViewer, alice, futureExpiry())

	err := db.ConsumeInvite(id, "bob@example.com", "wrong-token", bob)
	if !errors.Is(err, ErrInviteTokenMismatch) {
		t.Errorf("got %v, want ErrInviteTokenMismatch", err)
	}

	// The invite survives a failed attempt.
	invites, _ := db.ListInvites(id)
	if invites[0].Status != InviteStatusPending {
		t.Errorf("status = %q, want pending", invites[0].Status)
	}
}

func TestInviteLazyExpiry(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	_, token, _ := db.CreateInvite(id, "bob@example.com", RoleViewer, alice, time.Now().Add(-time.Hour).Unix())

	err := db.ConsumeInvite(id, "bob@example.com", token, bob)
	if !errors.Is(err, ErrInviteExpired) {
		t.Errorf("got %v, want ErrInviteExpired", err)
	}

	invites, _ := db.ListInvites(id)
	if invites[0].Status != InviteStatusExpired {
		t.Errorf("status = %q, want expired", invites[0].Status)
	}
}

func TestInviteRevoke(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	inv, token, _ := db.CreateInvite(id, "bob@example.com", RoleViewer, alice, futureExpiry())

	if err := db.RevokeInvite(inv.ID); err != nil {
		t.Fatal(err)
	}

	err := db.ConsumeInvite(id, "bob@example.com", token, bob)
	if !errors.Is(err, ErrInviteRevoked) {
		t.Errorf("got %v, want ErrInviteRevoked", err)
	}
}

func TestRevokeSettledInviteNoop(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	inv, token, _ := db.CreateInvite(id, "bob@example.com", RoleViewer, alice, futureExpiry())
	if err := db.ConsumeInvite(id, "bob@example.com", token, bob); err != nil {
		t.Fatal(err)
	}

	if err := db.RevokeInvite(inv.ID); err != nil {
		t.Fatalf("revoke settled invite: %v", err)
	}
	invites, _ := db.ListInvites(id)
	if invites[0].Status != InviteStatusAccepted {
		t.Errorf("status = %q, accept must not be undone", invites[0].Status)
	}
}

func TestInviteOverwritesExistingRole(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.UpsertMember(id, bob, RoleViewer); err != nil {
		t.Fatal(err)
	}

	_, token, _ := db.CreateInvite(id, "bob@example.com", RoleEditor, alice, futureExpiry())
	if err := db.ConsumeInvite(id, "bob@example.com", token, bob); err != nil {
		t.Fatal(err)
	}

	role, _ := db.GetWorkspaceRole(bob, id)
	if role != RoleEditor {
		t.Errorf("role = %q, want editor after accepting a stronger invite", role)
	}
}

func TestConsumeInviteNoneFound(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	err := db.ConsumeInvite(id, "bob@example.com", "token", bob)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateInviteValidation(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")

	if _, _, err := db.CreateInvite(id, "", RoleViewer, alice, futureExpiry()); err == nil {
		t.Error("expected error for empty email")
	}
	if _, _, err := db.CreateInvite(id, "x@example.com", "boss", alice, futureExpiry()); err == nil {
		t.Error("expected error for invalid role")
	}
}

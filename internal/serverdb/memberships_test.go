package serverdb

import (
	"errors"
	"testing"
)

func TestAuthorizeRoleHierarchy(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")
	carol := newTestUser(t, db, "carol")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	db.UpsertMember(id, bob, RoleEditor)
	db.UpsertMember(id, carol, RoleViewer)

	cases := []struct {
		user     string
		required string
		wantErr  error
	}{
		{alice, RoleOwner, nil},
		{alice, RoleViewer, nil},
		{bob, RoleEditor, nil},
		{bob, RoleOwner, ErrForbiddenRole},
		{carol, RoleViewer, nil},
		{carol, RoleEditor, ErrForbiddenRole},
	}
	for _, tc := range cases {
		err := db.Authorize(tc.user, id, tc.required)
		if tc.wantErr == nil && err != nil {
			t.Errorf("authorize(%s, %s): %v", tc.user, tc.required, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("authorize(%s, %s): got %v, want %v", tc.user, tc.required, err, tc.wantErr)
		}
	}
}

func TestAuthorizeNonMember(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.Authorize(bob, id, RoleViewer); !errors.Is(err, ErrNotMember) {
		t.Errorf("got %v, want ErrNotMember", err)
	}
}

func TestAuthorizeDeletedWorkspace(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	db.SoftDeleteWorkspace(id)

	if err := db.Authorize(alice, id, RoleOwner); !errors.Is(err, ErrNotMember) {
		t.Errorf("got %v, want ErrNotMember for deleted workspace", err)
	}
}

func TestUpsertMemberOverwritesRole(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.UpsertMember(id, bob, RoleViewer); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMember(id, bob, RoleEditor); err != nil {
		t.Fatal(err)
	}

	role, _ := db.GetWorkspaceRole(bob, id)
	if role != RoleEditor {
		t.Errorf("role = %q, want editor", role)
	}

	members, _ := db.ListMembers(id)
	if len(members) != 2 {
		t.Errorf("got %d members, want 2", len(members))
	}
}

func TestUpsertMemberRejectsInvalidRole(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.UpsertMember(id, alice, "superuser"); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestSetMemberRoleMissing(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")

	err := db.SetMemberRole(id, "nobody", RoleViewer)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRemoveMemberRehomesPointer(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	home, _ := db.CreateWorkspace(bob, "Home", "")
	shared, _ := db.CreateWorkspace(alice, "Shared", "")
	db.UpsertMember(shared, bob, RoleEditor)
	if err := db.SetActiveWorkspace(bob, shared); err != nil {
		t.Fatal(err)
	}

	if err := db.RemoveMember(shared, bob); err != nil {
		t.Fatalf("remove member: %v", err)
	}

	if role, _ := db.GetWorkspaceRole(bob, shared); role != "" {
		t.Errorf("bob still has role %q", role)
	}
	u, _ := db.GetUserByID(bob)
	if u.ActiveWorkspaceID != home {
		t.Errorf("pointer = %q, want %q", u.ActiveWorkspaceID, home)
	}
}

func TestRemoveMemberMissing(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")

	err := db.RemoveMember(id, "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

package serverdb

import (
	"errors"
	"testing"
)

func TestCreateWorkspaceOwnerMembership(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	id, err := db.CreateWorkspace(alice, "Team", "shared notes")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	role, err := db.GetWorkspaceRole(alice, id)
	if err != nil {
		t.Fatal(err)
	}
	if role != RoleOwner {
		t.Errorf("creator role = %q, want owner", role)
	}
}

func TestCreateWorkspaceRequiresName(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	if _, err := db.CreateWorkspace(alice, "", ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestDefaultWorkspaceCreatesWhenNone(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	id, name, err := db.GetOrCreateDefaultWorkspace(alice)
	if err != nil {
		t.Fatalf("default workspace: %v", err)
	}
	if name != DefaultWorkspaceName {
		t.Errorf("name = %q, want %q", name, DefaultWorkspaceName)
	}

	role, _ := db.GetWorkspaceRole(alice, id)
	if role != RoleOwner {
		t.Errorf("role = %q, want owner", role)
	}

	u, _ := db.GetUserByID(alice)
	if u.ActiveWorkspaceID != id {
		t.Errorf("active pointer = %q, want %q", u.ActiveWorkspaceID, id)
	}

	// A second call returns the same workspace.
	again, _, err := db.GetOrCreateDefaultWorkspace(alice)
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("second call returned %s, want %s", again, id)
	}
}

func TestDefaultWorkspacePrefersActivePointer(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	first, err := db.CreateWorkspace(alice, "First", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.CreateWorkspace(alice, "Second", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetActiveWorkspace(alice, second); err != nil {
		t.Fatal(err)
	}

	id, _, err := db.GetOrCreateDefaultWorkspace(alice)
	if err != nil {
		t.Fatal(err)
	}
	if id != second {
		t.Errorf("got %s, want active workspace %s (not %s)", id, second, first)
	}
}

func TestDefaultWorkspaceRepairsStalePointer(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	kept, err := db.CreateWorkspace(alice, "Kept", "")
	if err != nil {
		t.Fatal(err)
	}
	doomed, err := db.CreateWorkspace(alice, "Doomed", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetActiveWorkspace(alice, doomed); err != nil {
		t.Fatal(err)
	}
	if err := db.SoftDeleteWorkspace(doomed); err != nil {
		t.Fatal(err)
	}

	id, _, err := db.GetOrCreateDefaultWorkspace(alice)
	if err != nil {
		t.Fatal(err)
	}
	if id != kept {
		t.Errorf("got %s, want surviving workspace %s", id, kept)
	}
	u, _ := db.GetUserByID(alice)
	if u.ActiveWorkspaceID != kept {
		t.Errorf("pointer not repaired: %q", u.ActiveWorkspaceID)
	}
}

func TestUpdateWorkspaceRoles(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")
	carol := newTestUser(t, db, "carol")

	id, err := db.CreateWorkspace(alice, "Team", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMember(id, bob, RoleEditor); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMember(id, carol, RoleViewer); err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateWorkspace(bob, id, "Renamed", "by editor"); err != nil {
		t.Errorf("editor should be able to rename: %v", err)
	}
	err = db.UpdateWorkspace(carol, id, "Nope", "")
	if !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("viewer rename: got %v, want ErrForbiddenRole", err)
	}

	ws, _ := db.GetWorkspace(id)
	if ws.Name != "Renamed" {
		t.Errorf("name = %q", ws.Name)
	}
}

func TestRemoveWorkspaceRequiresOwner(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.UpsertMember(id, bob, RoleEditor); err != nil {
		t.Fatal(err)
	}

	err := db.RemoveWorkspace(bob, id)
	if !errors.Is(err, ErrForbiddenOwner) {
		t.Errorf("editor delete: got %v, want ErrForbiddenOwner", err)
	}
	if err := db.RemoveWorkspace(alice, id); err != nil {
		t.Errorf("owner delete: %v", err)
	}

	ws, _ := db.GetWorkspace(id)
	if !ws.Deleted {
		t.Error("workspace should be soft-deleted")
	}
}

func TestSoftDeleteRehomesActivePointers(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	home, err := db.CreateWorkspace(bob, "Home", "")
	if err != nil {
		t.Fatal(err)
	}
	shared, err := db.CreateWorkspace(alice, "Shared", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMember(shared, bob, RoleEditor); err != nil {
		t.Fatal(err)
	}
	if err := db.SetActiveWorkspace(alice, shared); err != nil {
		t.Fatal(err)
	}
	if err := db.SetActiveWorkspace(bob, shared); err != nil {
		t.Fatal(err)
	}

	if err := db.SoftDeleteWorkspace(shared); err != nil {
		t.Fatal(err)
	}

	// Bob keeps a membership elsewhere and lands there.
	bu, _ := db.GetUserByID(bob)
	if bu.ActiveWorkspaceID != home {
		t.Errorf("bob's pointer = %q, want %q", bu.ActiveWorkspaceID, home)
	}
	// Alice has nowhere else; her pointer is cleared.
	au, _ := db.GetUserByID(alice)
	if au.ActiveWorkspaceID != "" {
		t.Errorf("alice's pointer = %q, want empty", au.ActiveWorkspaceID)
	}
}

func TestSetActiveWorkspaceDeniedForDeleted(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	id, _ := db.CreateWorkspace(alice, "Gone", "")
	if err := db.SoftDeleteWorkspace(id); err != nil {
		t.Fatal(err)
	}

	err := db.SetActiveWorkspace(alice, id)
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("got %v, want ErrNotMember", err)
	}
}

func TestSetActiveWorkspaceDeniedForNonMember(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	id, _ := db.CreateWorkspace(alice, "Private", "")
	err := db.SetActiveWorkspace(bob, id)
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("got %v, want ErrNotMember", err)
	}
}

func TestRestoreWorkspace(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.SoftDeleteWorkspace(id); err != nil {
		t.Fatal(err)
	}
	if err := db.RestoreWorkspace(id); err != nil {
		t.Fatalf("restore: %v", err)
	}
	ws, _ := db.GetWorkspace(id)
	if ws.Deleted {
		t.Error("workspace still deleted after restore")
	}

	if err := db.RestoreWorkspace(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("restoring a live workspace: got %v, want ErrNotFound", err)
	}
}

func TestListUserWorkspacesSkipsDeleted(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	live, _ := db.CreateWorkspace(alice, "Live", "")
	dead, _ := db.CreateWorkspace(alice, "Dead", "")
	if err := db.SoftDeleteWorkspace(dead); err != nil {
		t.Fatal(err)
	}

	listings, err := db.ListUserWorkspaces(alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 || listings[0].ID != live {
		t.Errorf("listings = %+v, want only %s", listings, live)
	}
}

func TestAdminListWorkspaces(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	db.CreateWorkspace(alice, "Alpha", "")
	dead, _ := db.CreateWorkspace(alice, "Beta", "")
	db.SoftDeleteWorkspace(dead)

	visible, err := db.AdminListWorkspaces("", false, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 1 {
		t.Errorf("got %d live workspaces, want 1", len(visible))
	}

	all, err := db.AdminListWorkspaces("", true, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d total workspaces, want 2", len(all))
	}

	matched, err := db.AdminListWorkspaces("alp", false, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 || matched[0].Name != "Alpha" {
		t.Errorf("search returned %+v", matched)
	}
}

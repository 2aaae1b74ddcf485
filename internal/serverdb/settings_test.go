package serverdb

import "testing"

func TestWorkspaceSettings(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")

	_, found, err := db.GetWorkspaceSetting(id, "theme")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unset key reported as found")
	}

	if err := db.SetWorkspaceSetting(id, "theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetWorkspaceSetting(id, "theme", "light"); err != nil {
		t.Fatal(err)
	}

	v, found, _ := db.GetWorkspaceSetting(id, "theme")
	if !found || v != "light" {
		t.Errorf("got (%q, %v), want (light, true)", v, found)
	}

	db.SetWorkspaceSetting(id, "locale", "en")
	all, err := db.ListWorkspaceSettings(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["theme"] != "light" || all["locale"] != "en" {
		t.Errorf("settings = %v", all)
	}
}

func TestSetSettingRequiresKey(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	id, _ := db.CreateWorkspace(alice, "Team", "")
	if err := db.SetWorkspaceSetting(id, "", "v"); err == nil {
		t.Error("expected error for empty key")
	}
}

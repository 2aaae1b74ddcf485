package serverdb

import "testing"

func TestResolveOrCreateUser(t *testing.T) {
	db := newTestDB(t)

	id, err := db.ResolveOrCreateUser("github", "12345", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id == "" {
		t.Fatal("empty user id")
	}

	u, err := db.GetUser("github", "12345")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("get user returned %+v, want id %s", u, id)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q", u.Email)
	}
}

func TestResolveOrCreateUserIdempotent(t *testing.T) {
	db := newTestDB(t)

	first, err := db.ResolveOrCreateUser("github", "12345", "alice@example.com", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.ResolveOrCreateUser("github", "12345", "alice@new.example.com", "Alice Cooper")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same identity resolved to %s then %s", first, second)
	}
}

func TestResolveDistinguishesProviders(t *testing.T) {
	db := newTestDB(t)

	a, _ := db.ResolveOrCreateUser("github", "sub", "a@example.com", "")
	b, _ := db.ResolveOrCreateUser("google", "sub", "b@example.com", "")
	if a == b {
		t.Error("same subject under different providers should be different users")
	}
}

func TestResolveRequiresIdentity(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.ResolveOrCreateUser("", "sub", "", ""); err == nil {
		t.Error("expected error for empty provider")
	}
	if _, err := db.ResolveOrCreateUser("github", "", "", ""); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestGetUserMissing(t *testing.T) {
	db := newTestDB(t)
	u, err := db.GetUser("github", "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	id := newTestUser(t, db, "alice")

	u, err := db.GetUserByEmail("ALICE@Example.COM")
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("lookup by email returned %+v, want id %s", u, id)
	}

	missing, err := db.GetUserByEmail("nobody@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown email, got %+v", missing)
	}
}

func TestSearchUsers(t *testing.T) {
	db := newTestDB(t)
	newTestUser(t, db, "alice")
	newTestUser(t, db, "bob")

	users, err := db.SearchUsers("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].Email != "alice@example.com" {
		t.Errorf("email = %q", users[0].Email)
	}

	all, err := db.SearchUsers("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("empty query returned %d users, want 2", len(all))
	}
}

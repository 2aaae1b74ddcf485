package serverdb

import (
	"database/sql"
	"fmt"
)

// AdminUser is a deployment-wide operator.
type AdminUser struct {
	UserID    string
	CreatedAt int64
	CreatedBy string
}

// IsAdmin reports whether the user is a deployment admin.
func (db *ServerDB) IsAdmin(userID string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM admin_users WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return true, nil
}

// GrantAdmin makes the user a deployment admin. Granting twice is a no-op.
func (db *ServerDB) GrantAdmin(userID, createdBy string) error {
	var exists int
	if err := db.conn.QueryRow(`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("check user: %w", err)
	}

	var by any
	if createdBy != "" {
		by = createdBy
	}
	_, err := db.conn.Exec(
		`INSERT INTO admin_users (user_id, created_at, created_by) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, nowUnix(), by,
	)
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	return nil
}

// RevokeAdmin removes the user's deployment admin status.
func (db *ServerDB) RevokeAdmin(userID string) error {
	res, err := db.conn.Exec(`DELETE FROM admin_users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("revoke admin: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAdmins returns all deployment admins, oldest first.
func (db *ServerDB) ListAdmins() ([]*AdminUser, error) {
	rows, err := db.conn.Query(`SELECT user_id, created_at, created_by FROM admin_users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*AdminUser
	for rows.Next() {
		a := &AdminUser{}
		var by sql.NullString
		if err := rows.Scan(&a.UserID, &a.CreatedAt, &by); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		a.CreatedBy = by.String
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admins: iterate: %w", err)
	}
	return admins, nil
}

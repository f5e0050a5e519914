package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound is returned by update/lookup operations when the referenced
// record does not exist.
var ErrNotFound = errors.New("record not found")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        display_name TEXT,
        is_admin BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'model')),
        text TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS knowledge (
        id TEXT PRIMARY KEY, -- UUID
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	return s.queryUser("SELECT id, email, password_hash, display_name, is_admin, created_at FROM users WHERE email = ?", email)
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	return s.queryUser("SELECT id, email, password_hash, display_name, is_admin, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) queryUser(query string, arg any) (*User, error) {
	var user User
	var displayName sql.NullString
	err := s.db.QueryRow(query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &displayName, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if displayName.Valid {
		user.DisplayName = &displayName.String
	}
	return &user, nil
}

func (s *SQLiteStore) CountUsers() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CreateUser(email, passwordHash string, displayName *string, isAdmin bool) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (email, password_hash, display_name, is_admin) VALUES (?, ?, ?, ?)",
		email, passwordHash, displayName, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

// UpdateUser overwrites the mutable fields of an existing user record.
func (s *SQLiteStore) UpdateUser(user *User) error {
	res, err := s.db.Exec("UPDATE users SET email = ?, password_hash = ?, display_name = ?, is_admin = ? WHERE id = ?",
		user.Email, user.PasswordHash, user.DisplayName, user.IsAdmin, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAdmin creates the given account with admin rights, or promotes it
// if it already exists. Used by the boot-time operator seed; safe to run on
// every start.
func (s *SQLiteStore) UpsertAdmin(email, passwordHash string, displayName *string) (*User, error) {
	existing, err := s.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.CreateUser(email, passwordHash, displayName, true)
	}
	existing.PasswordHash = passwordHash
	existing.IsAdmin = true
	if displayName != nil {
		existing.DisplayName = displayName
	}
	if err := s.UpdateUser(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString() // Ensure ID is set
	msg.CreatedAt = time.Now()

	stmt, err := s.db.Prepare("INSERT INTO messages (id, user_id, role, text, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(msg.ID, msg.UserID, msg.Role, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	return nil
}

// GetMessagesByUserID returns the user's full transcript, oldest first.
func (s *SQLiteStore) GetMessagesByUserID(userID int64) ([]Message, error) {
	rows, err := s.db.Query("SELECT id, user_id, role, text, created_at FROM messages WHERE user_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteMessagesByUserID clears one user's transcript. Other users'
// messages are untouched.
func (s *SQLiteStore) DeleteMessagesByUserID(userID int64) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Knowledge methods

func (s *SQLiteStore) CreateKnowledge(title, content string) (*KnowledgeEntry, error) {
	entry := KnowledgeEntry{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}
	stmt, err := s.db.Prepare("INSERT INTO knowledge (id, title, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare knowledge insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(entry.ID, entry.Title, entry.Content, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute knowledge insert: %w", err)
	}
	return &entry, nil
}

// ListKnowledge returns all entries, newest first.
func (s *SQLiteStore) ListKnowledge() ([]KnowledgeEntry, error) {
	rows, err := s.db.Query("SELECT id, title, content, created_at FROM knowledge ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		var entry KnowledgeEntry
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.Content, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *SQLiteStore) UpdateKnowledge(id, title, content string) (*KnowledgeEntry, error) {
	res, err := s.db.Exec("UPDATE knowledge SET title = ?, content = ? WHERE id = ?", title, content, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update knowledge: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}

	var entry KnowledgeEntry
	err = s.db.QueryRow("SELECT id, title, content, created_at FROM knowledge WHERE id = ?", id).
		Scan(&entry.ID, &entry.Title, &entry.Content, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reload knowledge entry: %w", err)
	}
	return &entry, nil
}

// DeleteKnowledge removes an entry. Deleting an absent id is not an error.
func (s *SQLiteStore) DeleteKnowledge(id string) error {
	_, err := s.db.Exec("DELETE FROM knowledge WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge: %w", err)
	}
	return nil
}

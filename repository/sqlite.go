package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"exchange-chat/logger"
	"exchange-chat/models"
)

// SQLiteStore implements MessageStore, UserStore, RequestStore and ItemStore
// on a single SQLite database. The schema is created on open.
type SQLiteStore struct {
	db *sql.DB
}

var _ MessageStore = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for concurrent readers alongside the writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Log.Info("sqlite store initialized", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			email        TEXT NOT NULL,
			phone        TEXT,
			is_suspended INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS items (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			image_url  TEXT,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS item_requests (
			id              TEXT PRIMARY KEY,
			item_id         TEXT NOT NULL,
			requester_id    TEXT NOT NULL,
			provider_id     TEXT NOT NULL,
			status          TEXT NOT NULL,
			quantity        TEXT,
			initial_message TEXT,
			created_at      TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			sender_id       TEXT NOT NULL,
			receiver_id     TEXT NOT NULL,
			content         TEXT NOT NULL,
			image_url       TEXT,
			is_read         INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at, id);
		CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread
			ON messages(receiver_id, is_read);
		CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver
			ON messages(sender_id, receiver_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const messageColumns = "id, conversation_id, sender_id, receiver_id, content, image_url, is_read, created_at"

// timeLayout is RFC3339 with a fixed nine-digit fraction. RFC3339Nano strips
// trailing zeros, which breaks the lexicographic ordering the created_at sort
// clauses rely on ("...00.5Z" > "...00.52Z" as text). Fixed width keeps text
// order equal to time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *SQLiteStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content, image_url, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ConversationID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		nullString(msg.ImageURL),
		boolToInt(msg.IsRead),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading message id: %w", err)
	}
	msg.ID = id
	return msg, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	return scanMessage(row)
}

func (s *SQLiteStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (s *SQLiteStore) CountUnreadTotal(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) MarkRead(ctx context.Context, senderID, receiverID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0`,
		senderID, receiverID,
	)
	if err != nil {
		return fmt.Errorf("marking read: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID, receiverID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND receiver_id = ? AND is_read = 0`,
		conversationID, receiverID,
	)
	if err != nil {
		return fmt.Errorf("marking conversation read: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConversationHeads resolves the latest message per conversation, then
// merges per-conversation unread and total counts fetched with two grouped
// queries.
func (s *SQLiteStore) ListConversationHeads(ctx context.Context, userID string) ([]ConversationHead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE (m.sender_id = ? OR m.receiver_id = ?)
		  AND m.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.conversation_id = m.conversation_id
			  AND (m2.sender_id = ? OR m2.receiver_id = ?)
			ORDER BY m2.created_at DESC, m2.id DESC
			LIMIT 1
		  )
		ORDER BY m.created_at DESC, m.id DESC`,
		userID, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying conversation heads: %w", err)
	}
	defer rows.Close()

	latest, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	unread, err := s.groupCounts(ctx, `
		SELECT conversation_id, COUNT(*) FROM messages
		WHERE receiver_id = ? AND is_read = 0
		GROUP BY conversation_id`, userID)
	if err != nil {
		return nil, err
	}

	totals, err := s.groupCounts(ctx, `
		SELECT conversation_id, COUNT(*) FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		GROUP BY conversation_id`, userID, userID)
	if err != nil {
		return nil, err
	}

	heads := make([]ConversationHead, 0, len(latest))
	for _, m := range latest {
		heads = append(heads, ConversationHead{
			Message:       m,
			UnreadCount:   unread[m.ConversationID],
			TotalMessages: totals[m.ConversationID],
		})
	}
	return heads, nil
}

func (s *SQLiteStore) groupCounts(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var conversationID string
		var count int
		if err := rows.Scan(&conversationID, &count); err != nil {
			return nil, fmt.Errorf("scanning counts: %w", err)
		}
		counts[conversationID] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, is_suspended, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, nullString(user.Phone),
		boolToInt(user.IsSuspended), formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	var phone sql.NullString
	var suspended int
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, is_suspended, created_at
		FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &phone, &suspended, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.Phone = phone.String
	user.IsSuspended = suspended != 0
	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error) {
	// explicit LOWER on both sides; SQLite's LIKE and LOWER fold ASCII only,
	// so non-ASCII names stay case-sensitive here
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone
		FROM users
		WHERE (LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))
		  AND id != ?
		  AND is_suspended = 0
		ORDER BY name
		LIMIT ?`,
		pattern, pattern, excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var results []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		var phone sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &phone); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Phone = phone.String
		results = append(results, u)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_requests (id, item_id, requester_id, provider_id, status, quantity, initial_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.ItemID, req.RequesterID, req.ProviderID, req.Status,
		nullString(req.Quantity), nullString(req.InitialMessage),
		formatTime(req.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting item request: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindRequestByID(ctx context.Context, id string) (*models.ItemRequest, error) {
	req := &models.ItemRequest{}
	var quantity, initialMessage sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, requester_id, provider_id, status, quantity, initial_message, created_at
		FROM item_requests WHERE id = ?`, id,
	).Scan(&req.ID, &req.ItemID, &req.RequesterID, &req.ProviderID, &req.Status,
		&quantity, &initialMessage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item request: %w", err)
	}

	req.Quantity = quantity.String
	req.InitialMessage = initialMessage.String
	req.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, image_url, created_at)
		VALUES (?, ?, ?, ?)`,
		item.ID, item.Name, nullString(item.ImageURL),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	item := &models.Item{}
	var imageURL sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, image_url, created_at
		FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &imageURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}

	item.ImageURL = imageURL.String
	item.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Users, Requests and Items return single-interface views of the store so
// callers depend only on what they use.
func (s *SQLiteStore) Users() UserStore       { return &sqliteUsers{s} }
func (s *SQLiteStore) Requests() RequestStore { return &sqliteRequests{s} }
func (s *SQLiteStore) Items() ItemStore       { return &sqliteItems{s} }

type sqliteUsers struct{ s *SQLiteStore }

func (u *sqliteUsers) Create(ctx context.Context, user *models.User) error {
	return u.s.CreateUser(ctx, user)
}

func (u *sqliteUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return u.s.FindUserByID(ctx, id)
}

func (u *sqliteUsers) Search(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error) {
	return u.s.SearchUsers(ctx, query, excludeID, limit)
}

type sqliteRequests struct{ s *SQLiteStore }

func (r *sqliteRequests) Create(ctx context.Context, req *models.ItemRequest) error {
	return r.s.CreateRequest(ctx, req)
}

func (r *sqliteRequests) FindByID(ctx context.Context, id string) (*models.ItemRequest, error) {
	return r.s.FindRequestByID(ctx, id)
}

type sqliteItems struct{ s *SQLiteStore }

func (i *sqliteItems) Create(ctx context.Context, item *models.Item) error {
	return i.s.CreateItem(ctx, item)
}

func (i *sqliteItems) FindByID(ctx context.Context, id string) (*models.Item, error) {
	return i.s.FindItemByID(ctx, id)
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	msg := &models.Message{}
	var imageURL sql.NullString
	var isRead int
	var createdAt string

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Content, &imageURL, &isRead, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.ImageURL = imageURL.String
	msg.IsRead = isRead != 0
	msg.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		var imageURL sql.NullString
		var isRead int
		var createdAt string

		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &imageURL, &isRead, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		msg.ImageURL = imageURL.String
		msg.IsRead = isRead != 0
		msg.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

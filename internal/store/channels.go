package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/model"
)

const channelSchema = `
CREATE TABLE IF NOT EXISTS channels (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS channel_members (
	channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	member_id  TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT 'member',
	joined_at  INTEGER NOT NULL,
	PRIMARY KEY (channel_id, member_id)
);
CREATE INDEX IF NOT EXISTS idx_channel_members_member ON channel_members(member_id);

CREATE TABLE IF NOT EXISTS channel_messages (
	id         TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	sender_id  TEXT NOT NULL,
	text       TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	thread_id  TEXT,
	metadata   TEXT
);
CREATE INDEX IF NOT EXISTS idx_channel_messages_channel_ts ON channel_messages(channel_id, ts);
CREATE INDEX IF NOT EXISTS idx_channel_messages_thread ON channel_messages(thread_id) WHERE thread_id IS NOT NULL;
`

// DefaultMessageLimit caps GetMessages when the caller does not pass one.
const DefaultMessageLimit = 50

// ChannelStore persists channels, members, and messages, and emits typed
// events on its bus after each mutation commits.
type ChannelStore struct {
	db     *sql.DB
	bus    *bus.Bus
	logger *slog.Logger

	// now is swappable in tests.
	now func() int64
}

// NewChannelStore opens the channel database at path and ensures the schema.
func NewChannelStore(path string, b *bus.Bus, logger *slog.Logger) (*ChannelStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(channelSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: channel schema: %w", err)
	}
	return &ChannelStore{db: db, bus: b, logger: logger, now: nowMillis}, nil
}

// Close closes the underlying database.
func (s *ChannelStore) Close() error {
	return s.db.Close()
}

// CreateChannel creates a channel and its initial membership in one
// transaction. The creator is forced into the member list with the admin
// role; everyone else joins as member. Returns ErrAlreadyExists when the
// name is taken.
func (s *ChannelStore) CreateChannel(ctx context.Context, name string, ctype model.ChannelType, description, createdBy string, members []string) (*model.Channel, error) {
	now := s.now()
	ch := model.Channel{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        ctype,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}

	if len(members) == 0 {
		members = []string{createdBy}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin create channel: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels WHERE name = ?`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: check channel name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("channel %q: %w", name, ErrAlreadyExists)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels (id, name, type, description, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.Name, string(ch.Type), ch.Description, ch.CreatedBy, ch.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("store: insert channel: %w", err)
	}

	seen := map[string]bool{}
	ordered := append([]string{createdBy}, members...)
	for _, memberID := range ordered {
		if memberID == "" || seen[memberID] {
			continue
		}
		seen[memberID] = true
		role := model.RoleMember
		if memberID == createdBy {
			role = model.RoleAdmin
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channel_members (channel_id, member_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			ch.ID, memberID, string(role), now,
		); err != nil {
			return nil, fmt.Errorf("store: insert member %s: %w", memberID, err)
		}
		ch.Members = append(ch.Members, model.ChannelMember{
			ChannelID: ch.ID, MemberID: memberID, Role: role, JoinedAt: now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit create channel: %w", err)
	}

	s.bus.Publish(model.ChannelCreatedEvent{Channel: ch})
	return &ch, nil
}

// DeleteChannel removes a channel by id. Members and messages cascade.
// Returns false when the channel does not exist; deletion is irreversible.
func (s *ChannelStore) DeleteChannel(ctx context.Context, id string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM channels WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup channel %s: %w", id, err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete channel %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	s.bus.Publish(model.ChannelDeletedEvent{ChannelID: id, Name: name})
	return true, nil
}

// ResolveChannel looks a channel up by id-or-name equality. Returns nil
// (not an error) when nothing matches. No side effects, no member list.
func (s *ChannelStore) ResolveChannel(ctx context.Context, nameOrID string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, description, created_by, created_at
		 FROM channels WHERE id = ? OR name = ?`, nameOrID, nameOrID)
	ch, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: resolve channel %q: %w", nameOrID, err)
	}
	return ch, nil
}

// GetChannel resolves a channel and expands its member list.
func (s *ChannelStore) GetChannel(ctx context.Context, nameOrID string) (*model.Channel, error) {
	ch, err := s.ResolveChannel(ctx, nameOrID)
	if err != nil || ch == nil {
		return ch, err
	}
	members, err := s.Members(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	ch.Members = members
	return ch, nil
}

// Members returns the membership edges of a channel ordered by join time.
func (s *ChannelStore) Members(ctx context.Context, channelID string) ([]model.ChannelMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, member_id, role, joined_at
		 FROM channel_members WHERE channel_id = ? ORDER BY joined_at ASC, member_id ASC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("store: list members: %w", err)
	}
	defer rows.Close()

	var members []model.ChannelMember
	for rows.Next() {
		var m model.ChannelMember
		var role string
		if err := rows.Scan(&m.ChannelID, &m.MemberID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("store: scan member: %w", err)
		}
		m.Role = model.MemberRole(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListChannels returns previews of every channel ordered by creation time.
func (s *ChannelStore) ListChannels(ctx context.Context) ([]model.ChannelPreview, error) {
	return s.listChannels(ctx,
		`SELECT id, name, type, description, created_by, created_at
		 FROM channels ORDER BY created_at ASC, id ASC`)
}

// ListChannelsForMember returns previews of the channels memberID belongs to.
func (s *ChannelStore) ListChannelsForMember(ctx context.Context, memberID string) ([]model.ChannelPreview, error) {
	return s.listChannels(ctx,
		`SELECT c.id, c.name, c.type, c.description, c.created_by, c.created_at
		 FROM channels c JOIN channel_members m ON m.channel_id = c.id
		 WHERE m.member_id = ? ORDER BY c.created_at ASC, c.id ASC`, memberID)
}

func (s *ChannelStore) listChannels(ctx context.Context, query string, args ...any) ([]model.ChannelPreview, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list channels: %w", err)
	}
	defer rows.Close()

	var previews []model.ChannelPreview
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan channel: %w", err)
		}
		previews = append(previews, model.ChannelPreview{Channel: *ch})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range previews {
		p := &previews[i]
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM channel_members WHERE channel_id = ?`, p.ID,
		).Scan(&p.MemberCount); err != nil {
			return nil, fmt.Errorf("store: count members: %w", err)
		}
		last, err := s.lastMessage(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.LastMessage = last
	}
	return previews, nil
}

func (s *ChannelStore) lastMessage(ctx context.Context, channelID string) (*model.ChannelMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel_id, sender_id, text, ts, thread_id, metadata
		 FROM channel_messages WHERE channel_id = ?
		 ORDER BY ts DESC, id DESC LIMIT 1`, channelID)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: last message: %w", err)
	}
	return msg, nil
}

// PostMessage appends a message to a channel. The message is durable the
// moment this returns; the channel.message event fires after commit with
// the channel name included so consumers can route without a re-read.
// Membership is not checked here — that is an upstream policy decision.
func (s *ChannelStore) PostMessage(ctx context.Context, channelID, senderID, text, threadID string, metadata map[string]any) (*model.ChannelMessage, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM channels WHERE id = ?`, channelID).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup channel %s: %w", channelID, err)
	}

	meta, err := encodeMeta(metadata)
	if err != nil {
		return nil, err
	}

	// V7 ids sort in creation order, so the id tie-break on equal
	// timestamps preserves commit order.
	msg := model.ChannelMessage{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChannelID: channelID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: s.now(),
		ThreadID:  threadID,
		Metadata:  metadata,
	}

	thread := sql.NullString{String: threadID, Valid: threadID != ""}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_messages (id, channel_id, sender_id, text, ts, thread_id, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChannelID, msg.SenderID, msg.Text, msg.Timestamp, thread, meta,
	); err != nil {
		return nil, fmt.Errorf("store: insert message: %w", err)
	}

	s.bus.Publish(model.ChannelMessageEvent{ChannelName: name, Message: msg})
	return &msg, nil
}

// MessageQuery narrows GetMessages. Zero values mean: default limit, before
// now, root-level messages only.
type MessageQuery struct {
	Limit    *int
	Before   *int64
	ThreadID string
}

// GetMessages returns up to limit messages older than before, in ascending
// timestamp order (ties broken by id). With ThreadID set it returns only
// that thread's messages; otherwise only root-level ones. The internal
// query walks newest-first so the most recent messages win the limit, then
// reverses at the boundary.
func (s *ChannelStore) GetMessages(ctx context.Context, channelID string, q MessageQuery) ([]model.ChannelMessage, error) {
	limit := DefaultMessageLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []model.ChannelMessage{}, nil
	}
	before := s.now() + 1
	if q.Before != nil {
		before = *q.Before
	}

	var rows *sql.Rows
	var err error
	if q.ThreadID != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, channel_id, sender_id, text, ts, thread_id, metadata
			 FROM channel_messages
			 WHERE channel_id = ? AND thread_id = ? AND ts < ?
			 ORDER BY ts DESC, id DESC LIMIT ?`, channelID, q.ThreadID, before, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, channel_id, sender_id, text, ts, thread_id, metadata
			 FROM channel_messages
			 WHERE channel_id = ? AND thread_id IS NULL AND ts < ?
			 ORDER BY ts DESC, id DESC LIMIT ?`, channelID, before, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChannelMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into ascending order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []model.ChannelMessage{}
	}
	return msgs, nil
}

// GetMessageByID returns a single message, or nil when it does not exist.
func (s *ChannelStore) GetMessageByID(ctx context.Context, id string) (*model.ChannelMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel_id, sender_id, text, ts, thread_id, metadata
		 FROM channel_messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get message %s: %w", id, err)
	}
	return msg, nil
}

// AddMember adds memberID to a channel. Returns false without error when
// the membership already exists. Emits channel.member.joined on success.
func (s *ChannelStore) AddMember(ctx context.Context, channelID, memberID string, role model.MemberRole) (bool, error) {
	if role == "" {
		role = model.RoleMember
	}
	m := model.ChannelMember{
		ChannelID: channelID,
		MemberID:  memberID,
		Role:      role,
		JoinedAt:  s.now(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channel_members (channel_id, member_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		m.ChannelID, m.MemberID, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		return false, fmt.Errorf("store: add member: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	s.bus.Publish(model.MemberJoinedEvent{Member: m})
	return true, nil
}

// RemoveMember removes memberID from a channel. The first call removes and
// emits channel.member.left; repeats are no-ops returning false. Past
// messages stay.
func (s *ChannelStore) RemoveMember(ctx context.Context, channelID, memberID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_members WHERE channel_id = ? AND member_id = ?`, channelID, memberID)
	if err != nil {
		return false, fmt.Errorf("store: remove member: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	s.bus.Publish(model.MemberLeftEvent{ChannelID: channelID, MemberID: memberID})
	return true, nil
}

// LastMessageTimes returns, per sender id, the timestamp of the most recent
// message they posted anywhere. The dashboard folds this into liveness.
func (s *ChannelStore) LastMessageTimes(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sender_id, MAX(ts) FROM channel_messages GROUP BY sender_id`)
	if err != nil {
		return nil, fmt.Errorf("store: last message times: %w", err)
	}
	defer rows.Close()

	times := make(map[string]int64)
	for rows.Next() {
		var sender string
		var ts int64
		if err := rows.Scan(&sender, &ts); err != nil {
			return nil, fmt.Errorf("store: scan last message time: %w", err)
		}
		times[sender] = ts
	}
	return times, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*model.Channel, error) {
	var ch model.Channel
	var ctype string
	if err := row.Scan(&ch.ID, &ch.Name, &ctype, &ch.Description, &ch.CreatedBy, &ch.CreatedAt); err != nil {
		return nil, err
	}
	ch.Type = model.ChannelType(ctype)
	return &ch, nil
}

func scanMessage(row rowScanner) (*model.ChannelMessage, error) {
	var m model.ChannelMessage
	var thread, meta sql.NullString
	if err := row.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.Text, &m.Timestamp, &thread, &meta); err != nil {
		return nil, err
	}
	if thread.Valid {
		m.ThreadID = thread.String
	}
	m.Metadata = decodeMeta(meta)
	return &m, nil
}

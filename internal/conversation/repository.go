package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/walletchat/walletchat/internal/infra"
)

// Repository persists conversations and their messages.
type Repository interface {
	Create(ctx context.Context, c Conversation) error
	ListByUser(ctx context.Context, userID string) ([]Conversation, error)
	GetOwned(ctx context.Context, id, userID string) (Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	// AddOwnedMessage inserts m only if the conversation belongs to userID.
	AddOwnedMessage(ctx context.Context, m Message, userID string) error
	AddMessage(ctx context.Context, m Message) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.PgxPool
}

// NewPostgresRepository builds a Postgres-backed conversation repository.
func NewPostgresRepository(db infra.PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c Conversation) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	owner, err := uuid.Parse(c.UserID)
	if err != nil {
		return ErrOwnerNotFound
	}
	_, err = r.db.Exec(ctx, `INSERT INTO conversations (id, user_id, created_at) VALUES ($1, $2, $3)`,
		id, owner, c.CreatedAt.UTC())
	if err != nil {
		if infra.IsForeignKeyViolation(err) {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Conversation, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return []Conversation{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, created_at FROM conversations
        WHERE user_id = $1 ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (Conversation, error) {
	convID, owner, ok := parseIDs(id, userID)
	if !ok {
		return Conversation{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, created_at FROM conversations
        WHERE id = $1 AND user_id = $2`, convID, owner)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	convID, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, conversation_id, content, message_type, created_at FROM messages
        WHERE conversation_id = $1 ORDER BY created_at, seq`, convID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			id, conv  uuid.UUID
			kind      string
			createdAt time.Time
			m         Message
		)
		if err := rows.Scan(&id, &conv, &m.Content, &kind, &createdAt); err != nil {
			return nil, err
		}
		m.ID = id.String()
		m.ConversationID = conv.String()
		m.Type = MessageType(kind)
		if !m.Type.Valid() {
			return nil, fmt.Errorf("message %s: unknown message type %q", m.ID, kind)
		}
		m.CreatedAt = createdAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddOwnedMessage(ctx context.Context, m Message, userID string) error {
	msgID, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	convID, owner, ok := parseIDs(m.ConversationID, userID)
	if !ok {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `INSERT INTO messages (id, conversation_id, content, message_type, created_at)
        SELECT $1, c.id, $3, $4, $5 FROM conversations c WHERE c.id = $2 AND c.user_id = $6`,
		msgID, convID, m.Content, string(m.Type), m.CreatedAt.UTC(), owner)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddMessage(ctx context.Context, m Message) error {
	msgID, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	convID, err := uuid.Parse(m.ConversationID)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `INSERT INTO messages (id, conversation_id, content, message_type, created_at)
        VALUES ($1, $2, $3, $4, $5)`, msgID, convID, m.Content, string(m.Type), m.CreatedAt.UTC())
	if err != nil {
		if infra.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func parseIDs(id, userID string) (uuid.UUID, uuid.UUID, bool) {
	convID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return convID, owner, true
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var (
		id, owner uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &owner, &createdAt); err != nil {
		return Conversation{}, err
	}
	return Conversation{ID: id.String(), UserID: owner.String(), CreatedAt: createdAt.UTC()}, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
)

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	conn conn
}

const (
	userColumns         = `id, email, password_hash, first_name, last_name, birth_date, sex, skill_level, avatar_ref, created_at, updated_at`
	eventColumns        = `id, location, latitude, longitude, starts_at, capacity, description, cancelled, organizer_id, created_at`
	registrationColumns = `id, event_id, user_id, registered_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func (q *queries) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := q.conn.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, toUnix(user.BirthDate),
		string(user.Sex), string(user.SkillLevel), nullString(user.AvatarRef), toUnix(user.CreatedAt), toUnix(user.UpdatedAt))
	if isUniqueViolation(err) {
		return model.ErrEmailTaken
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (q *queries) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}
	existing, err := q.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if user.FirstName != "" {
		existing.FirstName = user.FirstName
	}
	if user.LastName != "" {
		existing.LastName = user.LastName
	}
	if !user.BirthDate.IsZero() {
		existing.BirthDate = user.BirthDate.UTC()
	}
	if user.Sex != "" {
		existing.Sex = user.Sex
	}
	if user.SkillLevel != "" {
		existing.SkillLevel = user.SkillLevel
	}
	if user.AvatarRef != "" {
		existing.AvatarRef = user.AvatarRef
	}
	if !user.UpdatedAt.IsZero() {
		existing.UpdatedAt = user.UpdatedAt.UTC()
	}

	_, err = q.conn.ExecContext(ctx, `UPDATE users SET first_name = ?, last_name = ?, birth_date = ?, sex = ?, skill_level = ?, avatar_ref = ?, updated_at = ? WHERE id = ?`,
		existing.FirstName, existing.LastName, toUnix(existing.BirthDate), string(existing.Sex), string(existing.SkillLevel),
		nullString(existing.AvatarRef), toUnix(existing.UpdatedAt), existing.ID)
	if err != nil {
		return storageErr(err)
	}
	*user = *existing
	return nil
}

func (q *queries) ReplaceAvatar(ctx context.Context, userID uuid.UUID, ref string, updatedAt time.Time) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty profile image reference", model.ErrInvalidInput)
	}
	existing, err := q.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	_, err = q.conn.ExecContext(ctx, `UPDATE users SET avatar_ref = ?, updated_at = ? WHERE id = ?`,
		ref, toUnix(updatedAt), userID)
	if err != nil {
		return "", storageErr(err)
	}
	return existing.AvatarRef, nil
}

func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := q.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := q.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (q *queries) SaveEvent(ctx context.Context, event *model.Event) error {
	if event == nil {
		return errors.New("nil event passed to save method")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	var capacity sql.NullInt64
	if event.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*event.Capacity), Valid: true}
	}
	_, err := q.conn.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Location.Name, event.Location.Latitude, event.Location.Longitude, toUnix(event.StartsAt),
		capacity, nullString(event.Description), event.Cancelled, event.OrganizerID, toUnix(event.CreatedAt))
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (q *queries) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	row := q.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// LockEvent needs no explicit lock: the single connection already serializes transactions.
func (q *queries) LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return q.GetEvent(ctx, id)
}

func (q *queries) MarkEventCancelled(ctx context.Context, id uuid.UUID) error {
	res, err := q.conn.ExecContext(ctx, `UPDATE events SET cancelled = 1 WHERE id = ?`, id)
	if err != nil {
		return storageErr(err)
	}
	return expectAffected(res)
}

func (q *queries) ListEvents(ctx context.Context, query ports.ListEventsQuery) (*ports.ListEventsResult, error) {
	var (
		where []string
		args  []any
	)
	if !query.IncludeCancelled {
		where = append(where, "cancelled = 0")
	}
	if query.OrganizerID != uuid.Nil {
		where = append(where, "organizer_id = ?")
		args = append(args, query.OrganizerID)
	}
	if len(query.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(query.IDs))+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}

	stmt := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY id ASC"
	if query.Limit != 0 || query.Offset != 0 {
		limit := int64(-1)
		if query.Limit != 0 {
			limit = int64(query.Limit)
		}
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, limit, int64(query.Offset))
	}

	rows, err := q.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return &ports.ListEventsResult{Events: events}, nil
}

func (q *queries) CountRegistrations(ctx context.Context, eventIDs ...uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	rows, err := q.conn.QueryContext(ctx,
		`SELECT event_id, COUNT(*) FROM registrations WHERE event_id IN (`+placeholders(len(eventIDs))+`) GROUP BY event_id`, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID uuid.UUID
			count   int
		)
		if err := rows.Scan(&eventID, &count); err != nil {
			return nil, storageErr(err)
		}
		counts[eventID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return counts, nil
}

func (q *queries) GetRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	row := q.conn.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	return scanRegistration(row)
}

func (q *queries) FindRegistration(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error) {
	row := q.conn.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? AND user_id = ?`, eventID, userID)
	return scanRegistration(row)
}

func (q *queries) InsertRegistration(ctx context.Context, registration *model.Registration) error {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	_, err := q.conn.ExecContext(ctx, `INSERT INTO registrations (`+registrationColumns+`) VALUES (?, ?, ?, ?)`,
		registration.ID, registration.EventID, registration.UserID, toUnix(registration.RegisteredAt))
	if isUniqueViolation(err) {
		return model.ErrAlreadyRegistered
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (q *queries) InsertRegistrationIfAbsent(ctx context.Context, registration *model.Registration) (bool, error) {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	res, err := q.conn.ExecContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`) VALUES (?, ?, ?, ?) ON CONFLICT (event_id, user_id) DO NOTHING`,
		registration.ID, registration.EventID, registration.UserID, toUnix(registration.RegisteredAt))
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

func (q *queries) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	res, err := q.conn.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return storageErr(err)
	}
	return expectAffected(res)
}

func (q *queries) ListRegistrations(ctx context.Context, query ports.ListRegistrationsQuery) (*ports.ListRegistrationsResult, error) {
	var (
		where []string
		args  []any
	)
	if query.EventID != uuid.Nil {
		where = append(where, "event_id = ?")
		args = append(args, query.EventID)
	}
	if query.UserID != uuid.Nil {
		where = append(where, "user_id = ?")
		args = append(args, query.UserID)
	}
	stmt := `SELECT ` + registrationColumns + ` FROM registrations`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY registered_at ASC, id ASC"

	rows, err := q.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	registrations := []model.Registration{}
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, *registration)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return &ports.ListRegistrationsResult{Registrations: registrations}, nil
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u                               model.User
		sex, skill                      string
		avatar                          sql.NullString
		birthDate, createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &birthDate, &sex, &skill, &avatar, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	u.BirthDate = fromUnix(birthDate)
	u.Sex = model.Sex(sex)
	u.SkillLevel = model.SkillLevel(skill)
	u.AvatarRef = avatar.String
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

func scanEvent(row scanner) (*model.Event, error) {
	var (
		e                   model.Event
		capacity            sql.NullInt64
		description         sql.NullString
		startsAt, createdAt int64
	)
	err := row.Scan(&e.ID, &e.Location.Name, &e.Location.Latitude, &e.Location.Longitude, &startsAt,
		&capacity, &description, &e.Cancelled, &e.OrganizerID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	e.StartsAt = fromUnix(startsAt)
	e.CreatedAt = fromUnix(createdAt)
	e.Description = description.String
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	return &e, nil
}

func scanRegistration(row scanner) (*model.Registration, error) {
	var (
		r            model.Registration
		registeredAt int64
	)
	err := row.Scan(&r.ID, &r.EventID, &r.UserID, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	r.RegisteredAt = fromUnix(registeredAt)
	return &r, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
)

const uniqueViolation = "23505"

// PostgresDB is a postgress adapter for persistance.
type PostgresDB struct {
	db *pg.DB
	queries
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil database handle")
	}
	return &PostgresDB{db: args.DB, queries: queries{conn: args.DB}}, nil
}

// Ping checks the database is reachable.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// RunInTx runs fn in a transaction. Begin and commit failures are reported as model.ErrStorage;
// errors returned by fn are returned untouched.
func (p *PostgresDB) RunInTx(ctx context.Context, fn func(ctx context.Context, q ports.Queries) error) error {
	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return storageErr(err)
	}
	// rolls back unless committed
	defer tx.CloseContext(ctx)

	if err := fn(ctx, &queries{conn: tx}); err != nil {
		return err
	}
	if err := tx.CommitContext(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// UpdateUser will update user. It returns model.ErrNotFound if the input user does not exist.
func (p *PostgresDB) UpdateUser(ctx context.Context, user *model.User) error {
	return p.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		return q.UpdateUser(ctx, user)
	})
}

// ReplaceAvatar swaps the profile image reference of the user in its own transaction.
func (p *PostgresDB) ReplaceAvatar(ctx context.Context, userID uuid.UUID, ref string, updatedAt time.Time) (string, error) {
	var previous string
	err := p.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		var err error
		previous, err = q.ReplaceAvatar(ctx, userID, ref, updatedAt)
		return err
	})
	return previous, err
}

// queries runs the persistence operations on a *pg.DB or a *pg.Tx.
type queries struct {
	conn orm.DB
}

// SaveUser will save the user in the database.
func (q *queries) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, err := q.conn.ModelContext(ctx, toUserDB(user)).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return storageErr(err)
	}
	return nil
}

func (q *queries) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}

	existingUser, err := q.lockUser(ctx, user.ID)
	if err != nil {
		return err
	}

	updateExisting(existingUser, user)
	if _, err := q.conn.ModelContext(ctx, existingUser).WherePK().Update(); err != nil {
		return storageErr(err)
	}

	*user = existingUser.toModel()
	return nil
}

func (q *queries) ReplaceAvatar(ctx context.Context, userID uuid.UUID, ref string, updatedAt time.Time) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty profile image reference", model.ErrInvalidInput)
	}
	existingUser, err := q.lockUser(ctx, userID)
	if err != nil {
		return "", err
	}

	previous := existingUser.AvatarRef
	existingUser.AvatarRef = ref
	existingUser.UpdatedAt = updatedAt.UTC()
	if _, err := q.conn.ModelContext(ctx, existingUser).Column("avatar_ref", "updated_at").WherePK().Update(); err != nil {
		return "", storageErr(err)
	}
	return previous, nil
}

// lockUser selects the user row FOR UPDATE. Outside a transaction the lock ends with the statement.
func (q *queries) lockUser(ctx context.Context, id uuid.UUID) (*userDB, error) {
	u := new(userDB)
	err := q.conn.ModelContext(ctx, u).Where("id = ?", id).For("UPDATE").Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, storageErr(err)
	}
	return u, nil
}

func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return q.selectUser(ctx, "id = ?", id)
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return q.selectUser(ctx, "email = ?", email)
}

func (q *queries) selectUser(ctx context.Context, condition string, param interface{}) (*model.User, error) {
	u := new(userDB)
	err := q.conn.ModelContext(ctx, u).Where(condition, param).Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, storageErr(err)
	}
	user := u.toModel()
	return &user, nil
}

func (q *queries) SaveEvent(ctx context.Context, event *model.Event) error {
	if event == nil {
		return errors.New("nil event passed to save method")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, err := q.conn.ModelContext(ctx, toEventDB(event)).Insert(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (q *queries) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return q.selectEvent(ctx, id, false)
}

// LockEvent takes a row lock on the event that lasts until the transaction ends.
func (q *queries) LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return q.selectEvent(ctx, id, true)
}

func (q *queries) selectEvent(ctx context.Context, id uuid.UUID, lock bool) (*model.Event, error) {
	e := new(eventDB)
	query := q.conn.ModelContext(ctx, e).Where("id = ?", id)
	if lock {
		query = query.For("UPDATE")
	}
	err := query.Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, storageErr(err)
	}
	event := e.toModel()
	return &event, nil
}

func (q *queries) MarkEventCancelled(ctx context.Context, id uuid.UUID) error {
	res, err := q.conn.ModelContext(ctx, (*eventDB)(nil)).Set("cancelled = TRUE").Where("id = ?", id).Update()
	if err != nil {
		return storageErr(err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListEvents list events matching the parameters in input
func (q *queries) ListEvents(ctx context.Context, query ports.ListEventsQuery) (*ports.ListEventsResult, error) {
	var events []eventDB
	sel := q.conn.ModelContext(ctx, &events).Order("id ASC")

	if !query.IncludeCancelled {
		sel = sel.Where("cancelled = FALSE")
	}
	if query.OrganizerID != uuid.Nil {
		sel = sel.Where("organizer_id = ?", query.OrganizerID)
	}
	if len(query.IDs) > 0 {
		sel = sel.WhereIn("id IN (?)", query.IDs)
	}
	if query.Limit != uint32(0) {
		sel = sel.Limit(int(query.Limit))
	}
	if query.Offset != uint32(0) {
		sel = sel.Offset(int(query.Offset))
	}
	if err := sel.Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, storageErr(err)
	}

	result := make([]model.Event, len(events))
	for i, e := range events {
		result[i] = e.toModel()
	}
	return &ports.ListEventsResult{Events: result}, nil
}

func (q *queries) CountRegistrations(ctx context.Context, eventIDs ...uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		EventID uuid.UUID `pg:"event_id,type:uuid"`
		Count   int       `pg:"count"`
	}
	err := q.conn.ModelContext(ctx, (*registrationDB)(nil)).
		Column("event_id").
		ColumnExpr("count(*) AS count").
		WhereIn("event_id IN (?)", eventIDs).
		Group("event_id").
		Select(&rows)
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, storageErr(err)
	}
	for _, r := range rows {
		counts[r.EventID] = r.Count
	}
	return counts, nil
}

func (q *queries) GetRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	r := new(registrationDB)
	err := q.conn.ModelContext(ctx, r).Where("id = ?", id).Select()
	return toRegistration(r, err)
}

func (q *queries) FindRegistration(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error) {
	r := new(registrationDB)
	err := q.conn.ModelContext(ctx, r).Where("event_id = ?", eventID).Where("user_id = ?", userID).Select()
	return toRegistration(r, err)
}

func (q *queries) InsertRegistration(ctx context.Context, registration *model.Registration) error {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	if _, err := q.conn.ModelContext(ctx, toRegistrationDB(registration)).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyRegistered
		}
		return storageErr(err)
	}
	return nil
}

func (q *queries) InsertRegistrationIfAbsent(ctx context.Context, registration *model.Registration) (bool, error) {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	res, err := q.conn.ModelContext(ctx, toRegistrationDB(registration)).
		OnConflict("(event_id, user_id) DO NOTHING").
		Insert()
	if err != nil {
		return false, storageErr(err)
	}
	return res.RowsAffected() > 0, nil
}

func (q *queries) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	res, err := q.conn.ModelContext(ctx, &registrationDB{ID: id}).WherePK().Delete()
	if err != nil {
		return storageErr(err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (q *queries) ListRegistrations(ctx context.Context, query ports.ListRegistrationsQuery) (*ports.ListRegistrationsResult, error) {
	var registrations []registrationDB
	sel := q.conn.ModelContext(ctx, &registrations).Order("registered_at ASC", "id ASC")
	if query.EventID != uuid.Nil {
		sel = sel.Where("event_id = ?", query.EventID)
	}
	if query.UserID != uuid.Nil {
		sel = sel.Where("user_id = ?", query.UserID)
	}
	if err := sel.Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, storageErr(err)
	}

	result := make([]model.Registration, len(registrations))
	for i, r := range registrations {
		result[i] = r.toModel()
	}
	return &ports.ListRegistrationsResult{Registrations: result}, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", model.ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	var pgErr pg.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func toRegistration(r *registrationDB, err error) (*model.Registration, error) {
	if errors.Is(err, pg.ErrNoRows) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, storageErr(err)
	}
	registration := r.toModel()
	return &registration, nil
}

func updateExisting(existing *userDB, user *model.User) {
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
		existing.Sex = string(user.Sex)
	}
	if user.SkillLevel != "" {
		existing.SkillLevel = string(user.SkillLevel)
	}
	if user.AvatarRef != "" {
		existing.AvatarRef = user.AvatarRef
	}
	if !user.UpdatedAt.IsZero() {
		existing.UpdatedAt = user.UpdatedAt.UTC()
	}
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"myspy/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const missionSelect = `
SELECT m.id, m.establishment_id, e.name, e.address, m.spy_id, m.ticket_value, m.status, m.created_at, m.updated_at
FROM missions m
JOIN users e ON e.id = m.establishment_id`

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	err := scan(&m.ID, &m.EstablishmentID, &m.EstablishmentName, &m.EstablishmentAddress,
		&m.SpyID, &m.TicketValue, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx, missionSelect+` WHERE m.id=?`, id)
	return scanMission(row.Scan)
}

// PendingMissionForSpy returns the spy's single non-terminal mission, or
// ErrNotFound.
func (r Repo) PendingMissionForSpy(ctx context.Context, spyID string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx,
		missionSelect+` WHERE m.spy_id=? AND m.status IN ('waiting','accepted','in_progress') ORDER BY m.created_at LIMIT 1`,
		spyID)
	return scanMission(row.Scan)
}

func (r Repo) InsertMissionTx(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO missions(id,establishment_id,spy_id,ticket_value,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.EstablishmentID, m.SpyID, m.TicketValue, m.Status, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) UpdateMissionStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.Status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertQuestionTx(ctx context.Context, tx *sql.Tx, missionID string, position int, q domain.Question) error {
	var min, max any
	if q.MinValue != nil {
		min = *q.MinValue
	}
	if q.MaxValue != nil {
		max = *q.MaxValue
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO questions(id,mission_id,position,category,text,type,min_value,max_value) VALUES (?,?,?,?,?,?,?,?)`,
		q.ID, missionID, position, q.Category, q.Text, q.Type, min, max)
	return err
}

// QuestionsForMission returns the mission's questions in server order, each
// carrying any recorded answer.
func (r Repo) QuestionsForMission(ctx context.Context, missionID string) ([]domain.Question, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT q.id, q.category, q.text, q.type, q.min_value, q.max_value, a.value_json
FROM questions q
LEFT JOIN answers a ON a.mission_id = q.mission_id AND a.question_id = q.id
WHERE q.mission_id=?
ORDER BY q.position`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Question
	for rows.Next() {
		var q domain.Question
		var min, max sql.NullInt64
		var valueJSON sql.NullString
		if err := rows.Scan(&q.ID, &q.Category, &q.Text, &q.Type, &min, &max, &valueJSON); err != nil {
			return nil, err
		}
		if min.Valid {
			v := int(min.Int64)
			q.MinValue = &v
		}
		if max.Valid {
			v := int(max.Int64)
			q.MaxValue = &v
		}
		if valueJSON.Valid {
			var answer any
			if err := json.Unmarshal([]byte(valueJSON.String), &answer); err != nil {
				return nil, fmt.Errorf("decode answer for question %s: %w", q.ID, err)
			}
			q.Answer = answer
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func (r Repo) GetQuestion(ctx context.Context, missionID, questionID string) (domain.Question, error) {
	var q domain.Question
	var min, max sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, category, text, type, min_value, max_value FROM questions WHERE mission_id=? AND id=?`,
		missionID, questionID).Scan(&q.ID, &q.Category, &q.Text, &q.Type, &min, &max)
	if err == sql.ErrNoRows {
		return q, ErrNotFound
	}
	if min.Valid {
		v := int(min.Int64)
		q.MinValue = &v
	}
	if max.Valid {
		v := int(max.Int64)
		q.MaxValue = &v
	}
	return q, err
}

func (r Repo) UpsertAnswerTx(ctx context.Context, tx *sql.Tx, missionID, questionID, userID, valueJSON, ts string) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO answers(mission_id,question_id,user_id,value_json,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(mission_id,question_id) DO UPDATE SET value_json=excluded.value_json, created_at=excluded.created_at`,
		missionID, questionID, userID, valueJSON, ts)
	return err
}

// UnansweredCount reports how many of the mission's questions still lack an
// answer.
func (r Repo) UnansweredCount(ctx context.Context, missionID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
SELECT count(*) FROM questions q
LEFT JOIN answers a ON a.mission_id = q.mission_id AND a.question_id = q.id
WHERE q.mission_id=? AND a.question_id IS NULL`, missionID).Scan(&n)
	return n, err
}

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var completed int
	err := scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.ProfileType, &completed)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.ProfileCompleted = completed != 0
	return u, err
}

const userSelect = `SELECT id, name, email, address, profile_type, profile_completed FROM users`

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, userSelect+` WHERE id=?`, id)
	return scanUser(row.Scan)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, userSelect+` WHERE email=?`, email)
	return scanUser(row.Scan)
}

// PasswordHash returns the stored hash for an email, or ErrNotFound.
func (r Repo) PasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email=?`, email).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return hash, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User, passwordHash, createdAt string) error {
	completed := 0
	if u.ProfileCompleted {
		completed = 1
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(id,name,email,password_hash,address,profile_type,profile_completed,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, passwordHash, u.Address, u.ProfileType, completed, createdAt)
	return err
}

// UserSearchParams filter the paginated user listing.
type UserSearchParams struct {
	Query            string
	Limit            int
	Page             int
	ProfileType      string
	ProfileCompleted *bool
}

// SearchUsers returns one page of users matching the filters plus the total
// match count.
func (r Repo) SearchUsers(ctx context.Context, p UserSearchParams) ([]domain.User, int, error) {
	if p.Limit <= 0 {
		p.Limit = 8
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	where := []string{"1=1"}
	var args []any
	if q := strings.TrimSpace(p.Query); q != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if p.ProfileType != "" {
		where = append(where, "profile_type=?")
		args = append(args, p.ProfileType)
	}
	if p.ProfileCompleted != nil {
		where = append(where, "profile_completed=?")
		completed := 0
		if *p.ProfileCompleted {
			completed = 1
		}
		args = append(args, completed)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (p.Page - 1) * p.Limit
	rows, err := r.DB.QueryContext(ctx,
		userSelect+` WHERE `+cond+` ORDER BY name LIMIT ? OFFSET ?`,
		append(args, p.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		var completed int
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.ProfileType, &completed); err != nil {
			return nil, 0, err
		}
		u.ProfileCompleted = completed != 0
		res = append(res, u)
	}
	return res, total, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meetingColumns = `id, title, created_at, updated_at, transcript, summary, key_points,
	 action_items, decisions, open_questions, participants, agenda, previous_summary, is_active`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateMeeting(ctx context.Context, input repository.CreateMeetingInput) (*repository.Meeting, error) {
	title := input.Title
	if title == "" {
		title = "Untitled Meeting"
	}
	agenda := input.Agenda
	if agenda == nil {
		agenda = []meeting.AgendaItem{}
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO meetings (id, title, agenda)
		 VALUES ($1, $2, $3)
		 RETURNING `+meetingColumns,
		input.ID, title, agenda)
	return scanMeeting(row)
}

func (r *PostgresRepository) GetMeeting(ctx context.Context, id string) (*repository.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) UpdateMeeting(ctx context.Context, m *repository.Meeting) (*repository.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE meetings SET
			title = $2, updated_at = $3, transcript = $4, summary = $5,
			key_points = $6, action_items = $7, decisions = $8,
			open_questions = $9, participants = $10, agenda = $11,
			previous_summary = $12
		 WHERE id = $1
		 RETURNING `+meetingColumns,
		m.ID, m.Title, time.Now(), m.Transcript, m.Summary,
		m.KeyPoints, m.ActionItems, m.Decisions,
		m.OpenQuestions, m.Participants, m.Agenda,
		m.PreviousSummary)
	updated, err := scanMeeting(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) SetMeetingActive(ctx context.Context, id string, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	return err
}

func (r *PostgresRepository) ListMeetings(ctx context.Context, limit, offset int) ([]*repository.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*repository.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) DeleteMeeting(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*repository.Meeting, error) {
	var m repository.Meeting
	err := row.Scan(
		&m.ID, &m.Title, &m.CreatedAt, &m.UpdatedAt, &m.Transcript, &m.Summary,
		&m.KeyPoints, &m.ActionItems, &m.Decisions, &m.OpenQuestions,
		&m.Participants, &m.Agenda, &m.PreviousSummary, &m.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

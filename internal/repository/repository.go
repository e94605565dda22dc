package repository

import (
	"context"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

type CreateMeetingInput struct {
	ID     string
	Title  string
	Agenda []meeting.AgendaItem
}

// Repository is the external meeting store. GetMeeting returns (nil, nil)
// when no record exists. Store failures must never take down a live session;
// callers log and keep serving from memory.
type Repository interface {
	CreateMeeting(ctx context.Context, input CreateMeetingInput) (*Meeting, error)
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	UpdateMeeting(ctx context.Context, m *Meeting) (*Meeting, error)
	SetMeetingActive(ctx context.Context, id string, active bool) error
	ListMeetings(ctx context.Context, limit, offset int) ([]*Meeting, error)
	DeleteMeeting(ctx context.Context, id string) (bool, error)
}

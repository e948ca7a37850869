package http

import (
	"context"
	"io"

	"campaignpulse/internal/services"
	"campaignpulse/pkg/contracts/domain"
)

// DashboardServiceInterface defines the session, upload and view operations
// the dashboard handler needs.
type DashboardServiceInterface interface {
	CreateSession(ctx context.Context) *services.SessionInfo
	Session(ctx context.Context, sessionID string) (*services.SessionInfo, error)
	EndSession(ctx context.Context, sessionID string) error
	Upload(ctx context.Context, sessionID string, mode services.UploadMode, files []domain.UploadedFile) (*services.UploadResult, error)
	Dashboard(ctx context.Context, sessionID string, spec domain.FilterSpec) (*domain.DashboardView, error)
	Export(ctx context.Context, sessionID string, spec domain.FilterSpec, format services.ExportFormat, w io.Writer) error
	Template(ctx context.Context, w io.Writer) error
}

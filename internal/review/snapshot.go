package review

import (
	"time"

	"finetica/internal/models"
)

// Snapshot is a consistent read of the session for rendering.
type Snapshot struct {
	Type       models.DocumentType
	ID         int64
	Mode       Mode
	IsEditing  bool
	IsApproved bool
	IsSaved    bool
	CanEdit    bool
	CanSave    bool
	CanApprove bool
	Loading    bool
	Pending    string
	Working    models.Fields
	Rows       []models.DisplayRow
	PDFURL     string
	ApprovedAt *time.Time
	ApprovedBy *string
	Err        error
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Type:       s.docType,
		ID:         s.id,
		Mode:       s.mode,
		IsEditing:  s.mode != ModeViewing,
		IsSaved:    s.saved,
		CanEdit:    s.canEdit(),
		CanSave:    s.canSave(),
		CanApprove: s.canApprove(),
		Loading:    s.loading,
		Pending:    s.pending,
		Err:        s.err,
	}
	if s.doc != nil {
		snap.IsApproved = s.approved()
		snap.Working = s.working.Clone()
		snap.Rows = models.DisplayRows(s.docType, s.working)
		snap.PDFURL = s.doc.PDFURL
		snap.ApprovedAt = s.doc.ApprovedAt
		snap.ApprovedBy = s.doc.ApprovedBy
	}
	return snap
}

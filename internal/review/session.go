// Package review holds the per-document review state machine. A session is in exactly one
// mode; every flag a view needs is derived from that mode and the loaded record.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finetica/internal/client"
	"finetica/internal/events"
	"finetica/internal/models"

	"go.uber.org/zap"
)

type Mode int

const (
	ModeViewing Mode = iota
	ModeEditing
	ModeApproving
)

func (m Mode) String() string {
	switch m {
	case ModeEditing:
		return "edit"
	case ModeApproving:
		return "approve"
	default:
		return "view"
	}
}

// Entry is the context a session was opened from.
type Entry int

const (
	EntryView Entry = iota
	EntryApprove
)

var (
	ErrNotLoaded       = errors.New("no document loaded")
	ErrNotEditable     = errors.New("document cannot be edited in its current state")
	ErrNotApprovable   = errors.New("document cannot be approved in its current state")
	ErrMutationPending = errors.New("a save or approval is already in progress")
	ErrUnknownField    = errors.New("unknown field")
	ErrSuperseded      = errors.New("another document was opened")
)

// DocumentAPI is the backend the session reads from and commits to.
type DocumentAPI interface {
	LoadDocument(ctx context.Context, docType models.DocumentType, id int64) (*client.Document, error)
	UpdateDocument(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*client.Document, error)
	Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields) (*client.Document, error)
}

type Session struct {
	api      DocumentAPI
	tracker  *events.Tracker
	notifier events.Notifier
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	docType    models.DocumentType
	id         int64
	entry      Entry
	mode       Mode
	doc        *client.Document
	working    models.Fields
	saved      bool
	loading    bool
	pending    string
	err        error

	approvedRemotely bool
	outbox           []events.Notification
}

func NewSession(api DocumentAPI, tracker *events.Tracker, notifier events.Notifier, logger *zap.Logger) *Session {
	if tracker == nil {
		tracker = events.NewTracker(nil)
	}
	return &Session{
		api:      api,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
}

// Open loads a document, discarding any unsaved state of the previous one without
// committing it. A load that resolves after another Open is dropped with ErrSuperseded.
func (s *Session) Open(ctx context.Context, docType models.DocumentType, id int64, entry Entry) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.docType = docType
	s.id = id
	s.entry = entry
	s.mode = ModeViewing
	s.doc = nil
	s.working = nil
	s.saved = false
	s.pending = ""
	s.err = nil
	s.loading = true
	s.approvedRemotely = false
	s.mu.Unlock()

	doc, err := s.api.LoadDocument(ctx, docType, id)

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrSuperseded
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.notifyError("Could not load document", err)
		return err
	}

	s.adopt(doc)
	if entry == EntryApprove && !doc.IsApproved() {
		s.mode = ModeApproving
	}
	return nil
}

// Close drops the session state. Results of calls still in flight are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.doc = nil
	s.working = nil
	s.mode = ModeViewing
	s.loading = false
	s.pending = ""
	s.approvedRemotely = false
}

// Edit enters Editing from Viewing.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotLoaded
	}
	if !s.canEdit() {
		return ErrNotEditable
	}
	s.mode = ModeEditing
	return nil
}

// SetField stages value in the working copy. Nothing is sent until Save or Approve.
func (s *Session) SetField(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotLoaded
	}
	if s.mode == ModeViewing {
		return ErrNotEditable
	}
	if _, ok := models.LookupField(s.docType, key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	s.working[key] = value
	return nil
}

// Cancel restores the working copy to the last loaded or saved fields. Editing returns to
// Viewing; Approving stays in Approving.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.pending != "" {
		return
	}
	s.working = s.doc.Fields.Clone()
	if s.mode == ModeEditing {
		s.mode = ModeViewing
	}
}

// Save commits the whole working copy. On failure the working copy is kept so the
// operator can retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.mode == ModeViewing || s.approved() {
		s.mu.Unlock()
		return ErrNotEditable
	}
	if s.pending != "" {
		s.mu.Unlock()
		return ErrMutationPending
	}
	s.pending = "save"
	gen, docType, id := s.generation, s.docType, s.id
	fields := s.working.Clone()
	s.mu.Unlock()
	defer s.flush()

	done, err := s.claim(gen, docType, id, "save")
	if err != nil {
		return err
	}

	doc, err := s.api.UpdateDocument(ctx, docType, id, fields)
	result := s.finish(gen, "Save failed", err, func() {
		s.adopt(doc)
		s.saved = true
		if s.mode == ModeEditing {
			s.mode = ModeViewing
		}
		s.notify(events.Notification{Level: events.LevelSuccess, Title: "Saved", Message: "Changes saved."})
	})
	s.reload(ctx, gen)
	done(err)
	return result
}

// Approve commits the approval. Staged edits travel with it as overrides, so the
// correction and the approval land in one write.
func (s *Session) Approve(ctx context.Context) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if !s.canApprove() {
		err := ErrNotApprovable
		if s.pending != "" {
			err = ErrMutationPending
		}
		s.mu.Unlock()
		return err
	}
	s.pending = "approve"
	gen, docType, id := s.generation, s.docType, s.id
	var overrides models.Fields
	if !s.working.Equal(s.doc.Fields) {
		overrides = s.working.Clone()
	}
	s.mu.Unlock()
	defer s.flush()

	done, err := s.claim(gen, docType, id, "approve")
	if err != nil {
		return err
	}

	doc, err := s.api.Approve(ctx, docType, id, overrides)
	result := s.finish(gen, "Approval failed", err, func() {
		s.adopt(doc)
		s.mode = ModeViewing
		s.notify(events.Notification{Level: events.LevelSuccess, Title: "Approved", Message: "Document approved."})
	})
	s.reload(ctx, gen)
	done(err)
	return result
}

// claim registers the mutation with the tracker. The pending mark is already set; the
// tracker publishes to the bus, so s.mu must not be held here.
func (s *Session) claim(gen uint64, docType models.DocumentType, id int64, action string) (func(error), error) {
	done, err := s.tracker.Begin(string(docType), id, action)
	if err == nil {
		return done, nil
	}

	s.mu.Lock()
	if gen == s.generation && s.pending == action {
		s.pending = ""
	}
	s.mu.Unlock()
	return nil, fmt.Errorf("%w: %v", ErrMutationPending, err)
}

// finish applies the outcome of a commit unless another document was opened meanwhile.
func (s *Session) finish(gen uint64, title string, err error, onSuccess func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrSuperseded
	}
	s.pending = ""

	if err != nil {
		return s.handleFailure(title, err)
	}
	onSuccess()
	return nil
}

// reload fetches the record again after an already-approved conflict that did not carry it.
func (s *Session) reload(ctx context.Context, gen uint64) {
	s.mu.Lock()
	stale := gen == s.generation && s.approvedRemotely
	docType, id := s.docType, s.id
	s.mu.Unlock()
	if !stale {
		return
	}

	doc, err := s.api.LoadDocument(ctx, docType, id)
	if err != nil {
		s.logger.Warn("Failed to reload approved document",
			zap.String("family", string(docType)),
			zap.Int64("document_id", id),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.pending != "" {
		return
	}
	s.adopt(doc)
}

// handleFailure reports a failed commit once. An already-approved conflict is not an
// error for the operator: the current record is adopted and the session turns read-only.
// Runs with s.mu held.
func (s *Session) handleFailure(title string, err error) error {
	var conflict *client.ConflictError
	if errors.As(err, &conflict) && conflict.AlreadyApproved() {
		if conflict.Document != nil {
			s.adopt(conflict.Document)
		} else {
			s.approvedRemotely = true
			s.working = s.doc.Fields.Clone()
		}
		s.mode = ModeViewing
		s.err = nil
		s.notify(events.Notification{
			Level:   events.LevelInfo,
			Title:   "Already approved",
			Message: approvedMessage(conflict.Document),
		})
		return nil
	}

	s.err = err
	s.notifyError(title, err)
	s.logger.Warn("Review commit failed",
		zap.String("family", string(s.docType)),
		zap.Int64("document_id", s.id),
		zap.Error(err),
	)
	return err
}

// adopt makes doc the last loaded record and resets the working copy to it.
func (s *Session) adopt(doc *client.Document) {
	s.doc = doc
	s.working = doc.Fields.Clone()
	s.approvedRemotely = false
	s.err = nil
}

// approved reports whether the loaded record is approved, or the server said so without
// sending the record.
func (s *Session) approved() bool {
	return s.doc != nil && (s.doc.IsApproved() || s.approvedRemotely)
}

func (s *Session) canEdit() bool {
	return s.doc != nil && s.mode == ModeViewing && !s.approved() && s.pending == ""
}

func (s *Session) canSave() bool {
	return s.doc != nil && s.mode != ModeViewing && !s.approved() && s.pending == ""
}

func (s *Session) canApprove() bool {
	return s.doc != nil && s.mode == ModeApproving && !s.approved() && s.pending == ""
}

// notify queues n. Runs with s.mu held; flush delivers once the lock is released.
func (s *Session) notify(n events.Notification) {
	if s.notifier != nil {
		s.outbox = append(s.outbox, n)
	}
}

func (s *Session) flush() {
	s.mu.Lock()
	out := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, n := range out {
		s.notifier.Notify(n)
	}
}

func (s *Session) notifyError(title string, err error) {
	n := events.Notification{Level: events.LevelError, Title: title, Message: err.Error()}

	var verr *client.ValidationError
	var notFound *client.NotFoundError
	switch {
	case errors.As(err, &verr):
		n.Message = verr.Message
	case errors.As(err, &notFound):
		n.Message = "Document not found."
	default:
		n.Retryable = client.IsRetryable(err)
	}
	s.notify(n)
}

func approvedMessage(doc *client.Document) string {
	if doc == nil || doc.ApprovedBy == nil || doc.ApprovedAt == nil {
		return "Document was already approved."
	}
	return fmt.Sprintf("Approved by %s on %s.", *doc.ApprovedBy, doc.ApprovedAt.Format("02.01.2006 15:04"))
}

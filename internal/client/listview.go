package client

import (
	"context"
	"errors"
	"sync"

	"finetica/internal/dto"
	"finetica/internal/models"
)

var ErrViewClosed = errors.New("list view closed")

type Fetcher[T any] func(ctx context.Context, params dto.ListParams) (*dto.Page[T], error)

// ListState is what a grid renders. Seq identifies the fetch that produced Page or Err.
type ListState[T any] struct {
	Params  dto.ListParams
	Page    *dto.Page[T]
	Err     error
	Loading bool
	Seq     uint64
}

// ListView runs server-paginated fetches for one grid. A new Fetch cancels the one in
// flight, and only the latest fetch may publish its result, so out-of-order responses
// are discarded.
type ListView[T any] struct {
	fetch    Fetcher[T]
	onChange func(ListState[T])

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	state  ListState[T]
}

func NewListView[T any](fetch Fetcher[T], onChange func(ListState[T])) *ListView[T] {
	return &ListView[T]{
		fetch:    fetch,
		onChange: onChange,
	}
}

// DocumentList binds a ListView to a family's document listing.
func (c *Client) DocumentList(docType models.DocumentType, onChange func(ListState[Document])) (*ListView[Document], error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}
	return NewListView(func(ctx context.Context, params dto.ListParams) (*dto.Page[Document], error) {
		return c.ListDocuments(ctx, docType, params)
	}, onChange), nil
}

// InvalidLogList binds a ListView to a family's invalid-document registry.
func (c *Client) InvalidLogList(docType models.DocumentType, onChange func(ListState[dto.IngestionLogResponse])) (*ListView[dto.IngestionLogResponse], error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}
	return NewListView(func(ctx context.Context, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error) {
		return c.ListInvalid(ctx, docType, params)
	}, onChange), nil
}

// Fetch loads params and blocks until the response arrives. applied is false when a
// later Fetch or Close superseded this one; its result is then dropped.
func (v *ListView[T]) Fetch(ctx context.Context, params dto.ListParams) (applied bool, err error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false, ErrViewClosed
	}
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.seq++
	seq := v.seq
	v.cancel = cancel
	v.state.Params = params
	v.state.Loading = true
	v.notify()
	v.mu.Unlock()

	page, err := v.fetch(fetchCtx, params)

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()
	if seq != v.seq || v.closed {
		return false, err
	}

	v.cancel = nil
	v.state.Loading = false
	v.state.Seq = seq
	if err != nil {
		// keep the last good page on screen
		v.state.Err = err
	} else {
		v.state.Page = page
		v.state.Err = nil
	}
	v.notify()
	return true, err
}

func (v *ListView[T]) State() ListState[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Close abandons the fetch in flight; later fetches fail with ErrViewClosed.
func (v *ListView[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.state.Loading = false
}

// notify runs with v.mu held.
func (v *ListView[T]) notify() {
	if v.onChange != nil {
		v.onChange(v.state)
	}
}

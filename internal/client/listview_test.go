package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finetica/internal/dto"
	"finetica/internal/models"
)

func TestListViewDiscardsStaleResponses(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var staleCtxErr error

	fetch := func(ctx context.Context, params dto.ListParams) (*dto.Page[int], error) {
		if params.Page == 1 {
			close(started)
			<-release
			staleCtxErr = ctx.Err()
			// resolve anyway, as a server that ignores cancellation would
			return &dto.Page[int]{Items: []int{1}, Page: 1}, nil
		}
		return &dto.Page[int]{Items: []int{2}, Page: params.Page}, nil
	}

	var mu sync.Mutex
	var published []ListState[int]
	view := NewListView(fetch, func(s ListState[int]) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, s)
	})

	firstDone := make(chan bool, 1)
	go func() {
		applied, _ := view.Fetch(context.Background(), dto.ListParams{Page: 1})
		firstDone <- applied
	}()
	<-started

	applied, err := view.Fetch(context.Background(), dto.ListParams{Page: 2})
	if err != nil || !applied {
		t.Fatalf("latest fetch: applied %v, err %v", applied, err)
	}

	close(release)
	if <-firstDone {
		t.Error("stale fetch was applied")
	}
	if !errors.Is(staleCtxErr, context.Canceled) {
		t.Errorf("stale fetch context not cancelled: %v", staleCtxErr)
	}

	state := view.State()
	if state.Page == nil || state.Page.Page != 2 || state.Loading || state.Seq != 2 {
		t.Errorf("unexpected state: %+v", state)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, s := range published {
		if s.Page != nil && s.Page.Page == 1 {
			t.Error("stale page was published")
		}
	}
}

func TestListViewKeepsLastPageOnError(t *testing.T) {
	fail := errors.New("boom")
	fetch := func(ctx context.Context, params dto.ListParams) (*dto.Page[string], error) {
		if params.Page == 2 {
			return nil, fail
		}
		return &dto.Page[string]{Items: []string{"a"}, Page: 1, Total: 1}, nil
	}
	view := NewListView(fetch, nil)

	if _, err := view.Fetch(context.Background(), dto.ListParams{Page: 1}); err != nil {
		t.Fatal(err)
	}
	applied, err := view.Fetch(context.Background(), dto.ListParams{Page: 2})
	if !applied || !errors.Is(err, fail) {
		t.Fatalf("applied %v, err %v", applied, err)
	}

	state := view.State()
	if state.Page == nil || state.Page.Page != 1 || !errors.Is(state.Err, fail) || state.Params.Page != 2 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestListViewClose(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context, params dto.ListParams) (*dto.Page[int], error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	view := NewListView(fetch, nil)

	done := make(chan bool, 1)
	go func() {
		applied, _ := view.Fetch(context.Background(), dto.ListParams{})
		done <- applied
	}()
	<-started
	view.Close()

	if <-done {
		t.Error("fetch applied after Close")
	}
	if _, err := view.Fetch(context.Background(), dto.ListParams{}); !errors.Is(err, ErrViewClosed) {
		t.Errorf("fetch after close = %v", err)
	}
	if view.State().Loading {
		t.Error("closed view still loading")
	}
}

func TestDocumentListRejectsUnknownType(t *testing.T) {
	c, _ := newTestClient(t, nil)
	if _, err := c.DocumentList(models.DocumentType("invoices"), nil); err == nil {
		t.Error("expected error")
	}
	if _, err := c.InvalidLogList(models.DocumentTypeKIF, nil); err != nil {
		t.Errorf("InvalidLogList: %v", err)
	}
}

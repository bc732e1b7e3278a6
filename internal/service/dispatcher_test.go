package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"healthathome/internal/entity"
	"healthathome/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type failingNotifier struct {
	mu       sync.Mutex
	attempts int
}

func (n *failingNotifier) Send(context.Context, *entity.Principal, service.Template, map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	return errors.New("smtp unreachable")
}

func TestDispatcherDropsRepeatedGeneration(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := service.NewDispatcher(notifier, nil)
	dispatcher.Sync = true

	principal := &entity.Principal{ID: uuid.New(), Email: "pat@example.com"}
	principal.Account.DispatchGeneration = 1

	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	assert.Len(t, notifier.byTemplate(service.TemplateVerification), 1)

	principal.Account.DispatchGeneration = 2
	dispatcher.Dispatch(principal, service.TemplateApproval, nil)
	assert.Len(t, notifier.byTemplate(service.TemplateApproval), 1)
}

func TestDispatcherEvictsStaleGenerations(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := service.NewDispatcher(notifier, nil)
	dispatcher.Sync = true
	dispatcher.Retention = time.Millisecond

	principal := &entity.Principal{ID: uuid.New(), Email: "pat@example.com"}
	principal.Account.DispatchGeneration = 1

	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	assert.Len(t, notifier.byTemplate(service.TemplateVerification), 1)

	// Once the retention window passes the entry is dropped and the same
	// generation is treated as unseen again.
	time.Sleep(5 * time.Millisecond)
	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	assert.Len(t, notifier.byTemplate(service.TemplateVerification), 2)
}

func TestDispatcherSwallowsDeliveryFailure(t *testing.T) {
	notifier := &failingNotifier{}
	dispatcher := service.NewDispatcher(notifier, nil)
	dispatcher.Sync = true

	principal := &entity.Principal{ID: uuid.New(), Email: "pat@example.com"}
	principal.Account.DispatchGeneration = 1

	// Must not panic or propagate; the caller's state change already
	// committed.
	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
	assert.Equal(t, 1, notifier.attempts)
}

func TestDispatcherNilNotifier(t *testing.T) {
	dispatcher := service.NewDispatcher(nil, nil)
	dispatcher.Sync = true

	principal := &entity.Principal{ID: uuid.New()}
	principal.Account.DispatchGeneration = 1
	dispatcher.Dispatch(principal, service.TemplateVerification, nil)
}

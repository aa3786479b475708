package accounts

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/credential"
)

func testHasher(opts ...credential.Option) *credential.Hasher {
	opts = append([]credential.Option{credential.WithParams(credential.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32})}, opts...)
	return credential.NewHasher(opts...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeRegistrar struct {
	mu       sync.Mutex
	err      error
	accounts []*Account
}

func (f *fakeRegistrar) RegisterProfile(ctx context.Context, account *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, account)
	return f.err
}

type sentReset struct {
	username  string
	email     string
	token     string
	expiresAt time.Time
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentReset
}

func (f *fakeNotifier) SendPasswordReset(ctx context.Context, account *Account, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentReset{account.Username, account.Email, token, expiresAt})
	return nil
}

func (f *fakeNotifier) last() sentReset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeRecorder struct {
	mu         sync.Mutex
	operations map[string][]string
	cacheHits  int
	cacheMiss  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{operations: make(map[string][]string)}
}

func (f *fakeRecorder) RecordAccountOperation(operation, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations[operation] = append(f.operations[operation], outcome)
}

func (f *fakeRecorder) RecordAuthCache(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.cacheHits++
	} else {
		f.cacheMiss++
	}
}

// failingStore wraps a Store and fails selected operations
type failingStore struct {
	Store
	deleteErr error
	updateErr error
	findErr   error
}

func (f *failingStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.Delete(ctx, id)
}

func (f *failingStore) Update(ctx context.Context, account *Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.Store.Update(ctx, account)
}

func (f *failingStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Store.FindByEmail(ctx, email)
}

var errBoom = errors.New("boom")

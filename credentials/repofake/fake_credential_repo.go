package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-delivery-console/credentials"
)

var _ credentials.Repo = (*FakeCredentialRepo)(nil)

// FakeCredentialRepo keeps credentials in memory. It backs the "memory" store and tests.
type FakeCredentialRepo struct {
	lock     sync.RWMutex
	values   map[credentials.Key]string
	setFails map[credentials.Key]error
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{
		values:   make(map[credentials.Key]string),
		setFails: make(map[credentials.Key]error),
	}
}

func (r *FakeCredentialRepo) Get(_ context.Context, key credentials.Key) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", credentials.ErrNotFound
	}
	return v, nil
}

func (r *FakeCredentialRepo) Set(_ context.Context, key credentials.Key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.setFails[key]; err != nil {
		return err
	}
	r.values[key] = value
	return nil
}

func (r *FakeCredentialRepo) Remove(_ context.Context, keys ...credentials.Key) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

// FailSet makes every later Set of key return err. A nil err restores normal behaviour.
func (r *FakeCredentialRepo) FailSet(key credentials.Key, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.setFails[key] = err
}

// Len returns the number of stored keys.
func (r *FakeCredentialRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.values)
}

// Package history keeps a ledger of package checks so a later invocation
// can re-run the packages that did not finish.
//
// Each requested name and specifier pair has one current entry, so
// "lodash@3" and "lodash@^4" are tracked apart. A check that timed out,
// whose workflow failed or that hit a transient registry error leaves the
// request [StatusPending]. License violations and specifiers no published
// version satisfies leave it [StatusBlocked], because running it again
// cannot change the answer. An installable request is [StatusDone].
package history

import (
	"context"
	"time"
)

// Status is the ledger state of a package.
type Status string

const (
	StatusPending Status = "pending"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
)

// Entry is the latest recorded check of one request.
type Entry struct {
	ID        string    `json:"id" bson:"entry_id"`
	Name      string    `json:"name" bson:"name"`
	Spec      string    `json:"spec" bson:"spec"`
	Version   string    `json:"version,omitempty" bson:"version,omitempty"`
	Status    Status    `json:"status" bson:"status"`
	Outcome   string    `json:"outcome" bson:"outcome"`
	Code      string    `json:"code,omitempty" bson:"code,omitempty"`
	Message   string    `json:"message,omitempty" bson:"message,omitempty"`
	RunURL    string    `json:"run_url,omitempty" bson:"run_url,omitempty"`
	BatchID   string    `json:"batch_id,omitempty" bson:"batch_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Key identifies the request an entry belongs to.
func (e Entry) Key() string { return e.Name + "@" + e.Spec }

// Store persists entries. Record replaces the entry with the same Key.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Pending(ctx context.Context) ([]Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// NullStore records nothing.
type NullStore struct{}

// NewNullStore returns a Store that discards entries.
func NewNullStore() NullStore { return NullStore{} }

func (NullStore) Record(context.Context, Entry) error      { return nil }
func (NullStore) Pending(context.Context) ([]Entry, error) { return nil, nil }
func (NullStore) List(context.Context) ([]Entry, error)    { return nil, nil }
func (NullStore) Close() error                             { return nil }

var _ Store = NullStore{}

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/property360/usersession/internal/storage"
	"github.com/property360/usersession/internal/storage/storagemem"
)

type faultyBackend struct {
	err   error
	panic bool
}

func (b faultyBackend) fault() error {
	if b.panic {
		panic("storage unavailable")
	}
	return b.err
}

func (b faultyBackend) Get(context.Context, string) ([]byte, error) { return nil, b.fault() }
func (b faultyBackend) Set(context.Context, string, []byte) error  { return b.fault() }
func (b faultyBackend) Delete(context.Context, string) error       { return b.fault() }

type item struct {
	ID string `json:"id"`
}

func TestStore_Faults(t *testing.T) {
	tests := []struct {
		name    string
		backend storage.Backend
	}{
		{
			name:    "Nil backend",
			backend: nil,
		},
		{
			name:    "Backend errors",
			backend: faultyBackend{err: errors.New("quota exceeded")},
		},
		{
			name:    "Backend panics",
			backend: faultyBackend{panic: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.New(tt.backend)

			assert.NotPanics(t, func() {
				value, ok := s.Read(t.Context(), "key")
				assert.False(t, ok)
				assert.Nil(t, value)

				assert.False(t, s.Write(t.Context(), "key", []byte("{}")))
				assert.False(t, s.Remove(t.Context(), "key"))

				_, ok = storage.Load[[]item](t.Context(), s, "key")
				assert.False(t, ok)
				assert.False(t, storage.Save(t.Context(), s, "key", []item{{ID: "a"}}))
			})
		})
	}
}

func TestStore_ReadWriteRemove(t *testing.T) {
	ctx := t.Context()
	s := storage.New(storagemem.NewBackend())

	_, ok := s.Read(ctx, storage.KeyShortlisted)
	assert.False(t, ok, "fresh store must be empty")

	assert.True(t, s.Write(ctx, storage.KeyShortlisted, []byte(`[{"id":"a"}]`)))

	value, ok := s.Read(ctx, storage.KeyShortlisted)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"a"}]`, string(value))

	assert.True(t, s.Remove(ctx, storage.KeyShortlisted))

	_, ok = s.Read(ctx, storage.KeyShortlisted)
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   []item
		wantOK bool
	}{
		{
			name:   "Valid value",
			stored: `[{"id":"a"},{"id":"b"}]`,
			want:   []item{{ID: "a"}, {ID: "b"}},
			wantOK: true,
		},
		{
			name:   "Malformed value",
			stored: `[{"id":`,
			wantOK: false,
		},
		{
			name:   "Wrong shape",
			stored: `{"id":"a"}`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.New(storagemem.NewBackend())
			s.Write(t.Context(), storage.KeyRecentlyBrowsed, []byte(tt.stored))

			got, ok := storage.Load[[]item](t.Context(), s, storage.KeyRecentlyBrowsed)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	s := storage.New(storagemem.NewBackend())
	want := []item{{ID: "x"}, {ID: "y"}}

	assert.True(t, storage.Save(t.Context(), s, storage.KeyShortlisted, want))

	got, ok := storage.Load[[]item](t.Context(), s, storage.KeyShortlisted)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSave_Unencodable(t *testing.T) {
	s := storage.New(storagemem.NewBackend())

	assert.False(t, storage.Save(t.Context(), s, storage.KeyShortlisted, make(chan int)))

	_, ok := s.Read(t.Context(), storage.KeyShortlisted)
	assert.False(t, ok)
}

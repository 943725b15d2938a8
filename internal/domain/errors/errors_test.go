package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindOK},
		{name: "batch empty", err: ErrBatchEmpty, want: KindValidation},
		{name: "unscoped query", err: ErrUnscopedQuery, want: KindValidation},
		{name: "wrapped validation", err: fmt.Errorf("create: %w", ErrInvalidTitle), want: KindValidation},
		{name: "unauthorized", err: ErrUnauthorized, want: KindUnauthenticated},
		{name: "bad credentials", err: ErrInvalidCredentials, want: KindUnauthenticated},
		{name: "task not found", err: ErrTaskNotFound, want: KindNotFound},
		{name: "forbidden", err: ErrForbidden, want: KindForbidden},
		{name: "duplicate category", err: ErrCategoryExists, want: KindConflict},
		{name: "anything else", err: New("disk on fire"), want: KindStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStorage(t *testing.T) {
	cause := New("connection reset")

	tests := []struct {
		name string
		err  error
		want struct {
			nilResult  bool
			isStorage  bool
			keepsCause bool
		}
	}{
		{
			name: "nil stays nil",
			err:  nil,
			want: struct {
				nilResult  bool
				isStorage  bool
				keepsCause bool
			}{nilResult: true},
		},
		{
			name: "foreign error is wrapped",
			err:  cause,
			want: struct {
				nilResult  bool
				isStorage  bool
				keepsCause bool
			}{isStorage: true, keepsCause: true},
		},
		{
			name: "taxonomy error passes through",
			err:  ErrTaskNotFound,
			want: struct {
				nilResult  bool
				isStorage  bool
				keepsCause bool
			}{isStorage: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Storage(tt.err)
			if tt.want.nilResult {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.want.isStorage, Is(got, ErrStorage))
			assert.Equal(t, tt.want.keepsCause, Is(got, cause))
			if !tt.want.isStorage {
				assert.Same(t, tt.err, got)
			}
		})
	}

	wrapped := Storage(cause)
	assert.Same(t, wrapped, Storage(wrapped), "wrapping twice is a no-op")
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "storage", KindStorage.String())
}

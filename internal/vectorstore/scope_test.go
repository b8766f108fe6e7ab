package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsetlabs/ragd/internal/vectorstore"
)

func TestScope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scope   vectorstore.Scope
		wantErr bool
	}{
		{
			name:  "complete scope",
			scope: vectorstore.Scope{TenantID: "acme", Key: "acme"},
		},
		{
			name:    "missing tenant",
			scope:   vectorstore.Scope{Key: "acme"},
			wantErr: true,
		},
		{
			name:    "missing key",
			scope:   vectorstore.Scope{TenantID: "acme"},
			wantErr: true,
		},
		{
			name:    "empty scope",
			scope:   vectorstore.Scope{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, vectorstore.ErrInvalidScope)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScope_Filter(t *testing.T) {
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme-staging"}
	assert.Equal(t, map[string]string{"scope_key": "acme-staging"}, scope.Filter())
}

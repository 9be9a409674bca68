package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from  State
		event Event
		want  State
	}{
		{Anonymous, EventSubmit, Authenticating},
		{Authenticating, EventSuccess, Authenticated},
		{Authenticating, EventFirstLogin, FirstLoginPending},
		{Authenticating, EventFailure, AuthenticationError},
		{AuthenticationError, EventErrorShown, Anonymous},
		{FirstLoginPending, EventRotated, Authenticated},
		{FirstLoginPending, EventSignOut, Anonymous},
		{Authenticated, EventSignOut, Anonymous},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_Illegal(t *testing.T) {
	for _, c := range []struct {
		from  State
		event Event
	}{
		{Anonymous, EventSuccess},
		{Anonymous, EventSignOut},
		{Authenticated, EventRotated},
		{FirstLoginPending, EventSuccess},
		{AuthenticationError, EventSubmit},
	} {
		got, err := Next(c.from, c.event)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, c.from, got)
	}
}

package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackWhenProviderCannotBeBuilt(t *testing.T) {
	cases := []Options{
		{Provider: ProviderREST},
		{Provider: ProviderREST, URL: "::bad", AnonKey: "k"},
		{Provider: ProviderPostgres},
		{Provider: "firebase"},
	}
	for _, opts := range cases {
		client := New(opts, nil)
		_, ok := client.(*Unavailable)
		assert.True(t, ok, "provider %q", opts.Provider)
	}
}

func TestUnavailableNeverPanics(t *testing.T) {
	client := New(Options{Provider: "nope"}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, client.Select(ctx, "classes", Query{}, nil), ErrUnavailable)
	assert.ErrorIs(t, client.Insert(ctx, "classes", nil, nil), ErrUnavailable)

	session, err := client.Auth().GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = client.Auth().SignInWithPassword(ctx, "a@b.c", "x")
	assert.ErrorIs(t, err, ErrUnavailable)

	unsubscribe := client.Auth().OnAuthStateChange(nil)
	unsubscribe()
}

func TestFactoryBuildsIsolatedSessions(t *testing.T) {
	factory := NewFactory(Options{Provider: ProviderREST, URL: "https://example.supabase.co", AnonKey: "anon"}, nil)

	first, second := factory(), factory()
	first.Auth().SetSession("token-a")

	assert.Equal(t, "token-a", first.(*RESTClient).auth.token())
	assert.Empty(t, second.(*RESTClient).auth.token())
}

package rules

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kneutral-org/compliance-alerting/internal/platform"
)

func mustRule(t *testing.T, name string, kind Kind) *Rule {
	t.Helper()
	rule, err := New(name, "", kind, SeverityWarning, nil, platform.OSWindows)
	require.NoError(t, err)
	return rule
}

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, mustRule(t, "Minimum OS version", KindOSVersion))
	require.NoError(t, err)

	fetched, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Minimum OS version", fetched.Name)
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestInMemoryStore_ListPreservesCreationOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, mustRule(t, "first", KindOSVersion))
	require.NoError(t, err)
	_, err = store.Create(ctx, mustRule(t, "second", KindEncryptionEnabled))
	require.NoError(t, err)
	_, err = store.Create(ctx, mustRule(t, "third", KindBrowserVersion))
	require.NoError(t, err)

	rules, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "first", rules[0].Name)
	assert.Equal(t, "second", rules[1].Name)
	assert.Equal(t, "third", rules[2].Name)
}

func TestInMemoryStore_ListEnabled(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	enabled, err := store.Create(ctx, mustRule(t, "enabled", KindOSVersion))
	require.NoError(t, err)
	disabled, err := store.Create(ctx, mustRule(t, "disabled", KindEncryptionEnabled))
	require.NoError(t, err)

	require.NoError(t, store.SetEnabled(ctx, disabled.ID, false))

	rules, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, enabled.ID, rules[0].ID)
}

func TestInMemoryStore_Update(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, mustRule(t, "original", KindOSVersion))
	require.NoError(t, err)

	created.Name = "renamed"
	created.Severity = SeverityCritical
	updated, err := store.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, SeverityCritical, updated.Severity)

	missing := mustRule(t, "missing", KindOSVersion)
	_, err = store.Update(ctx, missing)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, mustRule(t, "doomed", KindOSVersion))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrRuleNotFound)

	rules, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestInMemoryStore_CopiesOnReadAndWrite(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rule := mustRule(t, "isolated", KindOSVersion)
	rule.Config = Config{"minimumVersion": "10.0.22621"}

	created, err := store.Create(ctx, rule)
	require.NoError(t, err)

	// Mutating the returned copy must not affect the stored rule.
	created.Config["minimumVersion"] = "tampered"
	created.Name = "tampered"

	fetched, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "isolated", fetched.Name)
	v, ok := fetched.Config.String("minimumVersion")
	require.True(t, ok)
	assert.Equal(t, "10.0.22621", v)
}

package mocks

import (
	"context"
	"errors"
	"testing"
)

const (
	testKey        = "test_key"
	testValue      = "test_value"
	testKeyMissing = "nonexistent"

	errFmtGetSetting = "GetSetting() error = %v"
	errFmtGetResult  = "GetSetting() = %v, want %v"
)

// errCustomTest is a static error for testing custom function overrides.
var errCustomTest = errors.New("custom test error")

func TestSettingsStore_GetSet(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	store.Set(testKey, testValue)

	result, ok, err := store.GetSetting(ctx, testKey)
	if err != nil {
		t.Fatalf(errFmtGetSetting, err)
	}

	if !ok || result != testValue {
		t.Errorf(errFmtGetResult, result, testValue)
	}
}

func TestSettingsStore_GetNotFound(t *testing.T) {
	store := NewSettingsStore()

	_, ok, err := store.GetSetting(context.Background(), testKeyMissing)
	if err != nil {
		t.Fatalf(errFmtGetSetting, err)
	}

	if ok {
		t.Error("GetSetting() ok = true for missing key")
	}
}

func TestSettingsStore_CustomFn(t *testing.T) {
	store := NewSettingsStore()
	store.GetSettingFn = func(_ context.Context, _ string) (string, bool, error) {
		return "", false, errCustomTest
	}

	_, _, err := store.GetSetting(context.Background(), testKey)
	if !errors.Is(err, errCustomTest) {
		t.Errorf("GetSetting() error = %v, want %v", err, errCustomTest)
	}
}

func TestSettingsStore_Clear(t *testing.T) {
	store := NewSettingsStore()
	store.Set(testKey, testValue)
	store.Clear()

	if _, ok, _ := store.GetSetting(context.Background(), testKey); ok {
		t.Error("expected setting to be cleared")
	}
}

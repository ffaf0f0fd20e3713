package view

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"match", "match"},
		{"isExact", "is_exact"},
		{"IsExact", "is_exact"},
		{"URL", "url"},
		{"deviceID2", "device_id2"},
		{"device-name", "device_name"},
		{"already_snake", "already_snake"},
		{"double__under", "double__under"},
		{"_", "_"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, toSnakeCase(tt.in), "toSnakeCase(%q)", tt.in)
	}
}

type target struct {
	Match    *targetMatch
	Title    string
	Count    int
	DeviceID string
	ignored  string
}

type targetMatch struct {
	Path string
}

func TestUnmarshalScope_Struct(t *testing.T) {
	s := NewBaseScope(map[string]any{
		"match":    targetMatch{Path: "/devices"},
		"title":    "Dashboard",
		"count":    int64(3),
		"deviceId": "rpi2",
		"ignored":  "x",
		"unknown":  true,
	})

	var got target
	require.NoError(t, UnmarshalScope(s, &got))
	require.Equal(t, target{
		Match:    &targetMatch{Path: "/devices"},
		Title:    "Dashboard",
		Count:    3,
		DeviceID: "rpi2",
	}, got)
}

func TestUnmarshalScope_Pointers(t *testing.T) {
	m := &targetMatch{Path: "/"}

	var got struct{ Match *targetMatch }
	require.NoError(t, UnmarshalScope(NewBaseScope(map[string]any{"match": m}), &got))
	require.Same(t, m, got.Match)

	var byValue struct{ Match targetMatch }
	require.NoError(t, UnmarshalScope(NewBaseScope(map[string]any{"match": m}), &byValue))
	require.Equal(t, "/", byValue.Match.Path)
}

func TestUnmarshalScope_Errors(t *testing.T) {
	var got target
	err := UnmarshalScope(NewBaseScope(map[string]any{"title": 42}), &got)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "err = %v", err)
	require.Equal(t, "title", de.Key)

	require.Error(t, UnmarshalScope(NewBaseScope(nil), got))
	require.Error(t, UnmarshalScope(NewBaseScope(nil), (*target)(nil)))

	var n int
	require.Error(t, UnmarshalScope(NewBaseScope(nil), &n))
}

func TestUnmarshalScope_Map(t *testing.T) {
	var got map[string]string
	require.NoError(t, UnmarshalScope(NewBaseScope(map[string]any{"deviceName": "rpi2", "x": nil}), &got))
	require.Equal(t, map[string]string{"device_name": "rpi2", "x": ""}, got)

	err := UnmarshalScope(NewBaseScope(map[string]any{"n": []int{1}}), &got)
	require.Error(t, err)
}

func TestBaseScope_TouchFromChild(t *testing.T) {
	root := NewBaseScope(nil)
	child := root.Spawn(map[string]any{"a": 1}).Spawn(nil)

	require.Empty(t, child.Vars())

	// repeated touches collapse into one pending notification
	child.Touch()
	child.Touch()

	select {
	case <-root.Touched():
	case <-time.After(time.Second):
		t.Fatal("root scope was not touched")
	}

	select {
	case <-root.Touched():
		t.Fatal("unexpected second notification")
	default:
	}
}

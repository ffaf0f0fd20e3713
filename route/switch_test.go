package route

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect_FirstMatchWins(t *testing.T) {
	rules := []Rule[string]{
		{Pattern: MustCompile("/devices"), Exact: true, Target: "overview"},
		{Pattern: MustCompile("/devices/:device"), Target: "device"},
		{Pattern: MustCompile("/devices/:name"), Target: "shadowed"},
		{Pattern: MustCompile("/devices"), Target: "fallback"},
	}

	tests := []struct {
		path       string
		wantTarget string
		wantIndex  int
		wantParams Params
		wantOK     bool
	}{
		{"/devices", "overview", 0, Params{}, true},
		{"/devices/thermostat-1", "device", 1, Params{"device": "thermostat-1"}, true},
		{"/devices/thermostat-1/log", "device", 1, Params{"device": "thermostat-1"}, true},
		{"/other", "", -1, nil, false},
		{"/", "", -1, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			sel, ok := Select(rules, tt.path)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantIndex, sel.Index)
			require.Equal(t, tt.wantTarget, sel.Rule.Target)
			require.Equal(t, tt.wantParams, sel.Match.Params)
		})
	}
}

func TestSelect_Empty(t *testing.T) {
	_, ok := Select[int](nil, "/")
	require.False(t, ok)
}

func TestSwitch(t *testing.T) {
	s := NewSwitch[int]()
	require.NoError(t, s.Handle("/", true, 1))
	require.NoError(t, s.Handle("/:device", false, 2))
	require.Error(t, s.Handle("no-slash", false, 3))
	require.Len(t, s.Rules(), 2)

	sel, ok := s.Select("/")
	require.True(t, ok)
	require.Equal(t, 1, sel.Rule.Target)

	sel, ok = s.Select("/artik053")
	require.True(t, ok)
	require.Equal(t, 2, sel.Rule.Target)
	require.Equal(t, "artik053", sel.Match.Params["device"])

	// Rules returns a copy.
	rules := s.Rules()
	rules[0].Target = 42
	require.Equal(t, 1, s.Rules()[0].Target)
}

package route

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		pattern string
		reason  string
	}{
		{"devices", "must begin with /"},
		{"/devices/:1st", `invalid parameter name "1st"`},
		{"/devices/:", `invalid parameter name ""`},
		{"/devices/:dev-ice", `invalid parameter name "dev-ice"`},
		{"/:a/x/:a", `duplicate parameter "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			var pe *PatternError
			require.True(t, errors.As(err, &pe), "err = %v", err)
			require.Equal(t, tt.reason, pe.Reason)
			require.Equal(t, tt.pattern, pe.Pattern)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	require.Panics(t, func() { MustCompile("relative") })
}

func TestPattern_ParamNames(t *testing.T) {
	p := MustCompile("/labs/:lab/devices/:device")
	require.Equal(t, []string{"lab", "device"}, p.ParamNames())
	require.Nil(t, MustCompile("/").ParamNames())
	require.Equal(t, "/", MustCompile("").String())
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		path      string
		exact     bool
		sensitive bool
		want      Match
		wantOK    bool
	}{
		{
			name:    "exact root",
			pattern: "/", path: "/", exact: true,
			want:   Match{Pattern: "/", URL: "/", IsExact: true, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "root prefix",
			pattern: "/", path: "/devices",
			want:   Match{Pattern: "/", URL: "/", IsExact: false, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "exact literal",
			pattern: "/devices", path: "/devices", exact: true,
			want:   Match{Pattern: "/devices", URL: "/devices", IsExact: true, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "trailing slash ignored",
			pattern: "/devices", path: "/devices/", exact: true,
			want:   Match{Pattern: "/devices", URL: "/devices", IsExact: true, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "exact rejects longer path",
			pattern: "/devices", path: "/devices/rpi2", exact: true,
		},
		{
			name:    "prefix on segment boundary",
			pattern: "/devices", path: "/devices/rpi2",
			want:   Match{Pattern: "/devices", URL: "/devices", IsExact: false, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "prefix needs full segment",
			pattern: "/devices", path: "/devicesx",
		},
		{
			name:    "parameter",
			pattern: "/devices/:device", path: "/devices/thermostat-1",
			want: Match{
				Pattern: "/devices/:device", URL: "/devices/thermostat-1", IsExact: true,
				Params: Params{"device": "thermostat-1"},
			},
			wantOK: true,
		},
		{
			name:    "parameter with nested path",
			pattern: "/devices/:device", path: "/devices/rpi2/results",
			want: Match{
				Pattern: "/devices/:device", URL: "/devices/rpi2", IsExact: false,
				Params: Params{"device": "rpi2"},
			},
			wantOK: true,
		},
		{
			name:    "parameter requires a segment",
			pattern: "/devices/:device", path: "/devices/",
		},
		{
			name:    "escaped parameter",
			pattern: "/devices/:device", path: "/devices/lab%20pi",
			want: Match{
				Pattern: "/devices/:device", URL: "/devices/lab%20pi", IsExact: true,
				Params: Params{"device": "lab pi"},
			},
			wantOK: true,
		},
		{
			name:    "case insensitive by default",
			pattern: "/devices", path: "/Devices", exact: true,
			want:   Match{Pattern: "/devices", URL: "/Devices", IsExact: true, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "case sensitive",
			pattern: "/devices", path: "/Devices", exact: true, sensitive: true,
		},
		{
			name:    "dot segments cleaned",
			pattern: "/devices", path: "/status/../devices/./", exact: true,
			want:   Match{Pattern: "/devices", URL: "/devices", IsExact: true, Params: Params{}},
			wantOK: true,
		},
		{
			name:    "duplicate slashes",
			pattern: "//devices//:device", path: "/devices//rpi2",
			want: Match{
				Pattern: "//devices//:device", URL: "/devices/rpi2", IsExact: true,
				Params: Params{"device": "rpi2"},
			},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MustCompile(tt.pattern).Match(tt.path, tt.exact, tt.sensitive)
			require.Equal(t, tt.wantOK, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		base string
		sub  []string
		want string
	}{
		{"/devices", []string{":device"}, "/devices/:device"},
		{"/devices/", []string{"/:device/"}, "/devices/:device"},
		{"/", []string{"/:device"}, "/:device"},
		{"", nil, "/"},
		{"/", []string{""}, "/"},
		{"/labs", []string{"a", "b"}, "/labs/a/b"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Join(tt.base, tt.sub...), "Join(%q, %q)", tt.base, tt.sub)
	}
}

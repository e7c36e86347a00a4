package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestUpgradeCommand(t *testing.T) {
	tests := []struct {
		method   InstallMethod
		expected string
	}{
		{InstallMethodBrew, "brew upgrade cliprelay/tap/cliprelay"},
		{InstallMethodNPM, "npm i -g @cliprelay/cli@latest"},
		{InstallMethodPNPM, "pnpm add -g @cliprelay/cli@latest"},
		{InstallMethodBun, "bun add -g @cliprelay/cli@latest"},
		{InstallMethodUnknown, "brew upgrade cliprelay/tap/cliprelay"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.expected, SuggestUpgradeCommand(tt.method))
		})
	}
}

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
		wantErr bool
	}{
		{"v1.0.0", "v1.0.1", true, false},
		{"1.0.0", "v1.0.0", false, false},
		{"v2.0.0", "v1.9.9", false, false},
		{"v1.2.3", "2.0.0", true, false},
		{"dev", "v1.0.0", false, true},
		{"v1.0.0", "latest", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.current+"_vs_"+tt.latest, func(t *testing.T) {
			got, err := IsNewerVersion(tt.current, tt.latest)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathMatchesNPM(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.npm-global/bin/cliprelay", true},
		{"/home/user/.npm/bin/cliprelay", true},
		{"/usr/local/lib/node_modules/.bin/cliprelay", true},
		{"/home/user/.local/share/npm/bin/cliprelay", true},
		{"/opt/homebrew/bin/cliprelay", false},
		{"/home/user/.bun/bin/cliprelay", false},
		{"/home/user/.local/share/pnpm/cliprelay", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesNPM(tt.path))
		})
	}
}

func TestPathMatchesBun(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.bun/bin/cliprelay", true},
		{"/home/user/.npm-global/bin/cliprelay", false},
		{"/opt/homebrew/bin/cliprelay", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesBun(tt.path))
		})
	}
}

func TestPathMatchesPNPM(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.local/share/pnpm/cliprelay", true},
		{"/home/user/.pnpm/global/cliprelay", true},
		{"/home/user/.npm-global/bin/cliprelay", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesPNPM(tt.path))
		})
	}
}

func TestPathMatchesHomebrew(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/opt/homebrew/bin/cliprelay", true},
		{"/usr/local/Cellar/cliprelay/1.0/bin/cliprelay", true},
		{"/home/linuxbrew/.linuxbrew/Cellar/cliprelay/1.0/bin/cliprelay", true},
		{"/home/user/.npm-global/bin/cliprelay", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesHomebrew(tt.path))
		})
	}
}

func TestInstallMethodRulesPathPrecedence(t *testing.T) {
	rules := installMethodRules()

	detect := func(path string) InstallMethod {
		for _, r := range rules {
			if r.check(path) {
				return r.method
			}
		}
		return InstallMethodUnknown
	}

	assert.Equal(t, InstallMethodNPM, detect("/home/user/.npm-global/bin/cliprelay"))
	assert.Equal(t, InstallMethodBun, detect("/home/user/.bun/bin/cliprelay"))
	assert.Equal(t, InstallMethodBrew, detect("/opt/homebrew/bin/cliprelay"))
	assert.Equal(t, InstallMethodPNPM, detect("/home/user/.local/share/pnpm/cliprelay"))
	assert.Equal(t, InstallMethodUnknown, detect("/usr/local/bin/cliprelay"))
}

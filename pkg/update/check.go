// Package update checks GitHub for a newer release and figures out which
// package manager installed the current binary so the upgrade command can
// suggest the right incantation.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const latestReleaseURL = "https://api.github.com/repos/cliprelay/cli/releases/latest"

// InstallMethod identifies how the binary was installed.
type InstallMethod string

const (
	InstallMethodBrew    InstallMethod = "brew"
	InstallMethodNPM     InstallMethod = "npm"
	InstallMethodPNPM    InstallMethod = "pnpm"
	InstallMethodBun     InstallMethod = "bun"
	InstallMethodUnknown InstallMethod = ""
)

// FetchLatest queries GitHub for the latest release tag and its URL.
func FetchLatest(ctx context.Context) (tag string, releaseURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestReleaseURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to reach GitHub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected response from GitHub: %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", "", fmt.Errorf("failed to parse release info: %w", err)
	}
	if release.TagName == "" {
		return "", "", fmt.Errorf("no release tag in GitHub response")
	}
	return release.TagName, release.HTMLURL, nil
}

// IsNewerVersion reports whether latest is strictly newer than current.
// Both accept an optional leading "v".
func IsNewerVersion(current, latest string) (bool, error) {
	cur, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid current version %q: %w", current, err)
	}
	lat, err := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid latest version %q: %w", latest, err)
	}
	return lat.GreaterThan(cur), nil
}

// DetectInstallMethod inspects the running binary's path.
func DetectInstallMethod() (InstallMethod, string) {
	binaryPath, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown, ""
	}
	if resolved, err := filepath.EvalSymlinks(binaryPath); err == nil {
		binaryPath = resolved
	}

	for _, rule := range installMethodRules() {
		if rule.check(binaryPath) {
			return rule.method, binaryPath
		}
	}
	return InstallMethodUnknown, binaryPath
}

type installMethodRule struct {
	method InstallMethod
	check  func(path string) bool
}

// installMethodRules is ordered: more specific path signatures first so e.g.
// a pnpm-managed path is not claimed by the npm matcher.
func installMethodRules() []installMethodRule {
	return []installMethodRule{
		{InstallMethodBun, pathMatchesBun},
		{InstallMethodPNPM, pathMatchesPNPM},
		{InstallMethodNPM, pathMatchesNPM},
		{InstallMethodBrew, pathMatchesHomebrew},
	}
}

func pathMatchesNPM(path string) bool {
	return strings.Contains(path, ".npm-global") ||
		strings.Contains(path, "/.npm/") ||
		strings.Contains(path, "node_modules") ||
		strings.Contains(path, "/npm/")
}

func pathMatchesBun(path string) bool {
	return strings.Contains(path, "/.bun/")
}

func pathMatchesPNPM(path string) bool {
	return strings.Contains(path, "/pnpm/") || strings.Contains(path, "/.pnpm/")
}

func pathMatchesHomebrew(path string) bool {
	return strings.Contains(path, "/homebrew/") ||
		strings.Contains(path, "/Cellar/") ||
		strings.Contains(path, "/.linuxbrew/")
}

// SuggestUpgradeCommand returns the upgrade command to show the
// user. Unknown installs default to the brew instructions.
func SuggestUpgradeCommand(method InstallMethod) string {
	switch method {
	case InstallMethodNPM:
		return "npm i -g @cliprelay/cli@latest"
	case InstallMethodPNPM:
		return "pnpm add -g @cliprelay/cli@latest"
	case InstallMethodBun:
		return "bun add -g @cliprelay/cli@latest"
	default:
		return "brew upgrade cliprelay/tap/cliprelay"
	}
}

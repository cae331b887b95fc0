package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// releasesURL is the GitHub releases endpoint; %s is the owner/name slug.
var releasesURL = "https://api.github.com/repos/%s/releases"

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

var semverRe = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

// detectLatestFallback queries the GitHub releases API directly. It is used
// when selfupdate cannot match release assets by its naming convention.
func detectLatestFallback(client *http.Client, repo string) (*selfupdate.Release, bool, error) {
	resp, err := client.Get(fmt.Sprintf(releasesURL, repo))
	if err != nil {
		return nil, false, fmt.Errorf("github API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed reading github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
	}

	var releases []githubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, false, fmt.Errorf("failed to decode github releases: %w", err)
	}
	r, ok := pickRelease(releases)
	return r, ok, nil
}

// pickRelease returns the highest published, non-prerelease semver release.
// Binaries named after an OS or architecture are preferred as the asset.
func pickRelease(releases []githubRelease) (*selfupdate.Release, bool) {
	type candidate struct {
		ver      semver.Version
		assetURL string
	}
	var candidates []candidate
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		match := semverRe.FindString(r.TagName)
		if match == "" {
			match = semverRe.FindString(r.Name)
		}
		if match == "" {
			continue
		}
		v, err := semver.ParseTolerant(match)
		if err != nil {
			continue
		}
		assetURL := ""
		for _, as := range r.Assets {
			name := strings.ToLower(as.Name)
			if strings.Contains(name, "darwin") || strings.Contains(name, "linux") || strings.Contains(name, "windows") ||
				strings.Contains(name, "amd64") || strings.Contains(name, "arm64") {
				assetURL = as.BrowserDownloadURL
				break
			}
			if assetURL == "" {
				assetURL = as.BrowserDownloadURL
			}
		}
		candidates = append(candidates, candidate{ver: v, assetURL: assetURL})
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ver.GT(candidates[j].ver)
	})
	best := candidates[0]
	return &selfupdate.Release{Version: best.ver, AssetURL: best.assetURL}, true
}

func detectLatest(repo string) (*selfupdate.Release, bool, error) {
	latest, found, err := selfupdate.DetectLatest(repo)
	if err == nil && found {
		return latest, true, nil
	}
	return detectLatestFallback(&http.Client{Timeout: 10 * time.Second}, repo)
}

func (a *app) update(args []string) error {
	fs := a.flagSet("update")
	yes := fs.Bool("y", false, "update without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Current version: %s\n", Version)
	latest, found, err := detectLatest(Repo)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if !found || latest == nil {
		fmt.Fprintf(a.stdout, "No releases found for %s.\n", Repo)
		return nil
	}
	fmt.Fprintf(a.stdout, "Latest version: %s\n", latest.Version)

	current, perr := currentVersion()
	if perr != nil {
		fmt.Fprintf(a.stdout, "warning: could not parse current version %q: %v\n", Version, perr)
	} else if latest.Version.LTE(current) {
		fmt.Fprintf(a.stdout, "You are already running the latest version: %s.\n", current)
		return nil
	}

	if latest.AssetURL == "" {
		fmt.Fprintf(a.stdout, "A new version (%s) is available but there is no downloadable asset.\n", latest.Version)
		fmt.Fprintln(a.stdout, "Please visit the project releases page to download the new version.")
		return nil
	}

	if !*yes {
		fmt.Fprintf(a.stdout, "A new version (%s) is available. Update now? (y/N): ", latest.Version)
		answer, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("failed reading input: %w", err)
		}
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(a.stdout, "Update cancelled.")
			return nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}
	a.log.Info().Str("asset", latest.AssetURL).Str("exe", exe).Msg("updating")
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "Updated to version %s.\n", latest.Version)
	return nil
}

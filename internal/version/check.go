package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultReleasesURL  = "https://api.github.com/repos/devfinder/devfinder/releases"
	checkTimeout        = 10 * time.Second
	maxReleasesPageSize = 20
)

var errUnexpectedStatus = errors.New("unexpected status from releases API")

// Release is the subset of the GitHub release payload the checker needs.
type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
	HTMLURL    string `json:"html_url"`
}

// CheckResult describes the outcome of a release check.
type CheckResult struct {
	Current         string `json:"current"`
	Latest          string `json:"latest"`
	UpdateAvailable bool   `json:"update_available"`
	URL             string `json:"url,omitempty"`
}

// Checker queries the releases feed and compares tags against the running build.
type Checker struct {
	client            *http.Client
	releasesURL       string
	includePrerelease bool
}

// NewChecker builds a release checker. releasesURL may be empty for the default feed.
func NewChecker(releasesURL string, includePrerelease bool) *Checker {
	if releasesURL == "" {
		releasesURL = defaultReleasesURL
	}

	return &Checker{
		client:            &http.Client{Timeout: checkTimeout},
		releasesURL:       releasesURL,
		includePrerelease: includePrerelease,
	}
}

// Check fetches releases and reports whether a newer tag exists.
func (c *Checker) Check(ctx context.Context) (*CheckResult, error) {
	url := fmt.Sprintf("%s?per_page=%d", c.releasesURL, maxReleasesPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("release check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("failed to decode releases: %w", err)
	}

	latest := c.pickLatest(releases)

	result := &CheckResult{Current: GetVersion(), Latest: latest.TagName, URL: latest.HTMLURL}
	result.UpdateAvailable = IsNewer(latest.TagName, GetVersion())

	return result, nil
}

// pickLatest returns the highest non-draft release tag, honoring the prerelease flag.
func (c *Checker) pickLatest(releases []Release) Release {
	var best Release

	for _, r := range releases {
		if r.Draft {
			continue
		}

		if r.Prerelease && !c.includePrerelease {
			continue
		}

		if best.TagName == "" || IsNewer(r.TagName, best.TagName) {
			best = r
		}
	}

	return best
}

// IsNewer reports whether candidate is a strictly newer semver tag than current.
// Non-semver versions (e.g. "dev") never trigger an update.
func IsNewer(candidate, current string) bool {
	cand := normalize(candidate)
	cur := normalize(current)

	if !semver.IsValid(cand) || !semver.IsValid(cur) {
		return false
	}

	return semver.Compare(cand, cur) > 0
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}

	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	return v
}

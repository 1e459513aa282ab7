package gitrepo

import (
	"fmt"
	"strings"
)

// RemoteInfo identifies the hosting location of the repository,
// derived from the origin remote URL.
type RemoteInfo struct {
	Owner string
	Repo  string
}

// DetectRemote parses the origin remote URL into owner and repository name.
// Both https and ssh remote forms are supported:
//
//	https://github.com/owner/repo.git
//	git@github.com:owner/repo.git
//	ssh://git@github.com/owner/repo.git
func DetectRemote(path string) (RemoteInfo, error) {
	repo, err := openRepo(path)
	if err != nil {
		return RemoteInfo{}, err
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return RemoteInfo{}, fmt.Errorf("getting origin remote: %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return RemoteInfo{}, fmt.Errorf("origin remote has no URL")
	}

	info, err := ParseRemoteURL(urls[0])
	if err != nil {
		return RemoteInfo{}, err
	}

	logDebug("[git] DetectRemote: %s/%s", info.Owner, info.Repo)
	return info, nil
}

// ParseRemoteURL extracts owner and repository name from a git remote URL.
func ParseRemoteURL(url string) (RemoteInfo, error) {
	trimmed := url
	trimmed = strings.TrimSuffix(trimmed, ".git")

	switch {
	case strings.Contains(trimmed, "://"):
		// https://host/owner/repo or ssh://git@host/owner/repo
		parts := strings.Split(trimmed, "/")
		if len(parts) < 2 {
			return RemoteInfo{}, fmt.Errorf("cannot parse remote URL %q", url)
		}
		return RemoteInfo{
			Owner: parts[len(parts)-2],
			Repo:  parts[len(parts)-1],
		}, nil
	case strings.Contains(trimmed, ":"):
		// git@host:owner/repo
		_, after, found := strings.Cut(trimmed, ":")
		if !found {
			return RemoteInfo{}, fmt.Errorf("cannot parse remote URL %q", url)
		}
		parts := strings.Split(after, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return RemoteInfo{}, fmt.Errorf("cannot parse remote URL %q", url)
		}
		return RemoteInfo{Owner: parts[0], Repo: parts[1]}, nil
	default:
		return RemoteInfo{}, fmt.Errorf("cannot parse remote URL %q", url)
	}
}

// Package mapping resolves local file paths against the configured
// local -> remote sync rules.
package mapping

import (
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// Rule maps a local directory root to a directory on a remote host. An empty
// RemoteHost refers to the local machine.
type Rule struct {
	LocalRoot  string
	RemoteRoot string
	RemoteHost string
}

// Set is an ordered list of rules. The first rule whose local root contains a
// path wins, even if a later rule is more specific.
type Set []Rule

// homedirExpand is mocked out in unit tests.
var homedirExpand = homedir.Expand

// Parse builds the rule set from the three comma separated configuration
// lists. The i-th local path is paired with the i-th remote path and host
// when they exist, and with the first ones otherwise. Empty local entries,
// such as the one left by a trailing comma, are skipped. An empty Set is
// returned when no local path is configured.
func Parse(localList, remoteList, hostList string) Set {
	locals := splitList(localList)
	if len(locals) == 0 || locals[0] == "" {
		return nil
	}

	remotes := splitList(remoteList)
	hosts := splitList(hostList)

	set := make(Set, 0, len(locals))
	for i, local := range locals {
		if local == "" {
			continue
		}
		set = append(set, Rule{
			LocalRoot:  local,
			RemoteRoot: pick(remotes, i),
			RemoteHost: pick(hosts, i),
		})
	}
	return set
}

// Empty returns whether syncing is configured at all.
func (set Set) Empty() bool {
	return len(set) == 0
}

// Resolve returns the first rule whose expanded local root is a strict
// directory prefix of `path`. A path equal to the root itself never matches,
// and a rule with an empty root matches nothing.
func (set Set) Resolve(path string) (Rule, bool) {
	for _, rule := range set {
		if rule.LocalRoot == "" {
			continue
		}
		if strings.HasPrefix(path, Expand(rule.LocalRoot)+string(filepath.Separator)) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Expand replaces a leading `~` with the user's home directory. If the home
// directory can't be determined, the path is returned unchanged.
func Expand(path string) string {
	expanded, err := homedirExpand(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("Failed to expand home directory")
		return path
	}
	return expanded
}

func splitList(list string) []string {
	parts := strings.Split(list, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func pick(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return list[0]
}

package mapping

// RemotePath computes where `localPath` should be written on the remote host.
// Both roots must already be tilde expanded. When the roots are the same,
// the file is synced to the same path it has locally.
func RemotePath(localPath, localRoot, remoteRoot string) string {
	if localRoot == remoteRoot {
		return localPath
	}
	return remoteRoot + localPath[len(localRoot):]
}

// Destination returns the remote path for `localPath` under `rule`. A `~` in
// the remote root is left for the remote shell to expand, unless the rule
// targets the local machine.
func (rule Rule) Destination(localPath string) string {
	remoteRoot := rule.RemoteRoot
	if rule.RemoteHost == "" {
		remoteRoot = Expand(remoteRoot)
	}
	return RemotePath(Expand(localPath), Expand(rule.LocalRoot), remoteRoot)
}

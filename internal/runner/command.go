package runner

// buildCommand constructs the codex argv for one job. The prompt itself is
// delivered on stdin (the trailing "-").
func buildCommand(binary string, req JobRequest, workdir, lastMessagePath string) []string {
	cmd := []string{binary, "--no-alt-screen"}
	cmd = append(cmd, "--ask-for-approval", string(req.Approval))
	cmd = append(cmd, "--sandbox", string(req.Sandbox))
	if req.Model != "" {
		cmd = append(cmd, "--model", req.Model)
	}
	if req.OSS {
		cmd = append(cmd, "--oss")
	}
	if req.LocalProvider != "" {
		cmd = append(cmd, "--local-provider", req.LocalProvider)
	}
	if req.Profile != "" {
		cmd = append(cmd, "--profile", req.Profile)
	}
	for _, override := range req.ConfigOverrides {
		cmd = append(cmd, "-c", override)
	}

	if req.ResumeSessionID != "" {
		cmd = append(cmd, "exec", "resume", "--json", "-C", workdir, "-o", lastMessagePath)
	} else {
		cmd = append(cmd, "exec", "--json", "-C", workdir, "-o", lastMessagePath)
	}
	if req.OutputSchemaPath != "" {
		cmd = append(cmd, "--output-schema", req.OutputSchemaPath)
	}
	if req.SkipGitRepoCheck {
		cmd = append(cmd, "--skip-git-repo-check")
	}
	if req.ResumeSessionID != "" {
		cmd = append(cmd, req.ResumeSessionID)
	}
	cmd = append(cmd, "-")
	return cmd
}

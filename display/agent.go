package display

import (
	"os"
)

// AgentInfo describes a detected coding-agent environment
type AgentInfo struct {
	IsAgent bool
	Tool    string
}

// IsAgentEnvironment returns true when the process is driven by a
// coding agent rather than a human at a terminal. Agents prefer
// compact machine-readable output.
func IsAgentEnvironment() bool {
	if os.Getenv("APE_CALLER") == "agent" {
		return true
	}
	return detectKnownAgentTools()
}

// GetAgentInfo returns which agent environment was detected
func GetAgentInfo() AgentInfo {
	if os.Getenv("APE_CALLER") == "agent" {
		return AgentInfo{IsAgent: true, Tool: "generic-agent"}
	}
	if os.Getenv("CLAUDECODE") != "" || os.Getenv("CLAUDE_CODE_ENTRYPOINT") != "" {
		return AgentInfo{IsAgent: true, Tool: "claude-code"}
	}
	if os.Getenv("CURSOR") != "" {
		return AgentInfo{IsAgent: true, Tool: "cursor"}
	}
	if os.Getenv("GITHUB_COPILOT") != "" {
		return AgentInfo{IsAgent: true, Tool: "github-copilot"}
	}
	return AgentInfo{}
}

func detectKnownAgentTools() bool {
	if os.Getenv("CLAUDECODE") != "" || os.Getenv("CLAUDE_CODE_ENTRYPOINT") != "" {
		return true
	}
	if os.Getenv("CURSOR") != "" {
		return true
	}
	if os.Getenv("GITHUB_COPILOT") != "" {
		return true
	}
	return false
}

// ShouldDisableColor returns true when terminal color would end up in
// an agent's context window
func ShouldDisableColor() bool {
	return IsAgentEnvironment()
}

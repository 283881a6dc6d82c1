// Package setup registers the MCP server binary with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/vhl-acmg-classifier/internal/app"
)

// DefaultServerName is the key the classifier is registered under.
const DefaultServerName = "vhl-acmg-classifier"

// binaryNames are searched in order when no binary path is given.
var binaryNames = []string{"vhl-mcp-server", "mcp-server"}

// ServerEntry is one entry of a client's mcpServers map.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is a desktop client configuration file. Keys other than
// mcpServers are kept as-is so registering never drops user settings.
type ClientConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// MarshalJSON writes mcpServers alongside the preserved keys.
func (c *ClientConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.other)+1)
	for k, v := range c.other {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers
	return json.Marshal(out)
}

// UnmarshalJSON splits mcpServers from the remaining keys.
func (c *ClientConfig) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.MCPServers = map[string]ServerEntry{}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return fmt.Errorf("invalid mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	c.other = raw
	return nil
}

// Options controls Register.
type Options struct {
	ClientConfigPath string // empty selects DefaultClientConfigPath
	ServerName       string // empty selects DefaultServerName
	BinaryPath       string // empty searches PATH and common build locations
	ConfigFile       string // classifier config passed through the environment
	Env              map[string]string
}

// DefaultClientConfigPath returns the Claude Desktop config location for this OS.
func DefaultClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig reads a client config, returning an empty one if the file is missing.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ClientConfig{MCPServers: map[string]ServerEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	cfg := &ClientConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return cfg, nil
}

// SaveClientConfig writes the client config, creating its directory if needed.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}

// Register adds or replaces the classifier entry and returns what was written.
func Register(opts Options) (*ServerEntry, error) {
	path, err := resolvePath(opts.ClientConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		if binary, err = FindBinary(); err != nil {
			return nil, err
		}
	}
	if abs, err := filepath.Abs(binary); err == nil {
		binary = abs
	}

	entry := ServerEntry{Command: binary, Env: map[string]string{}}
	for k, v := range opts.Env {
		entry.Env[k] = v
	}
	if opts.ConfigFile != "" {
		abs, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("invalid config file path: %w", err)
		}
		entry.Env[app.ConfigPathEnv] = abs
	}
	if len(entry.Env) == 0 {
		entry.Env = nil
	}

	cfg.MCPServers[serverName(opts.ServerName)] = entry
	if err := SaveClientConfig(path, cfg); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Unregister removes the entry, reporting whether it was present.
func Unregister(clientConfigPath, name string) (bool, error) {
	path, err := resolvePath(clientConfigPath)
	if err != nil {
		return false, err
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return false, err
	}

	name = serverName(name)
	if _, ok := cfg.MCPServers[name]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, name)
	return true, SaveClientConfig(path, cfg)
}

// FindBinary looks for the MCP server on PATH, then in common build locations.
func FindBinary() (string, error) {
	for _, name := range binaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	home, _ := os.UserHomeDir()
	for _, name := range binaryNames {
		for _, loc := range []string{
			filepath.Join(".", name),
			filepath.Join(".", "bin", name),
			filepath.Join(".", "build", name),
			filepath.Join(home, ".local", "bin", name),
			filepath.Join(home, "go", "bin", name),
		} {
			if info, err := os.Stat(loc); err == nil && !info.IsDir() {
				return loc, nil
			}
		}
	}
	return "", fmt.Errorf("MCP server binary not found (looked for %v)", binaryNames)
}

// Status describes the registration found in a client config.
type Status struct {
	ClientConfigPath string
	Registered       bool
	Entry            *ServerEntry
	OtherServers     []string
	Issues           []string
}

// Check inspects the client config without modifying it.
func Check(clientConfigPath, name string) (*Status, error) {
	path, err := resolvePath(clientConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	name = serverName(name)
	status := &Status{ClientConfigPath: path}
	for other := range cfg.MCPServers {
		if other != name {
			status.OtherServers = append(status.OtherServers, other)
		}
	}
	sort.Strings(status.OtherServers)

	entry, ok := cfg.MCPServers[name]
	if !ok {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered", name))
		return status, nil
	}
	status.Registered = true
	status.Entry = &entry

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if cfgFile := entry.Env[app.ConfigPathEnv]; cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("classifier config not found: %s", cfgFile))
		}
	}
	return status, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultClientConfigPath()
}

func serverName(name string) string {
	if name == "" {
		return DefaultServerName
	}
	return name
}

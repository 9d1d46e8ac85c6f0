package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type MatchKind string

const (
	MatchNone       MatchKind = ""
	MatchExact      MatchKind = "exact"
	MatchPartial    MatchKind = "partial"
	MatchPackage    MatchKind = "package"
	MatchConnection MatchKind = "connection"
)

const (
	MetadataFile = "server-metadata.json"
	ConfigFile   = "mcp-config.json"
	ReadmeFile   = "README-AIRTABLE.md"
	EnvFile      = ".env.example"
)

var mcpAffixes = []string{"mcp__", "mcp-", "-mcp", "_mcp"}

// NormalizeName lowercases name, drops mcp prefixes and suffixes and turns
// separators into spaces.
func NormalizeName(name string) string {
	n := strings.ToLower(name)
	for _, a := range mcpAffixes {
		n = strings.ReplaceAll(n, a, "")
	}
	n = strings.NewReplacer("-", " ", "_", " ").Replace(n)
	return strings.TrimSpace(n)
}

// FindServer tries, in order: exact normalized name, partial normalized
// name, package/source and connection command. Empty fields never match.
func FindServer(records []Record, serverName string) (*Record, MatchKind) {
	search := NormalizeName(serverName)

	for i := range records {
		if f := NormalizeName(records[i].Field("MCP Server Name")); f != "" && f == search {
			return &records[i], MatchExact
		}
	}
	for i := range records {
		f := NormalizeName(records[i].Field("MCP Server Name"))
		if f != "" && search != "" && (strings.Contains(f, search) || strings.Contains(search, f)) {
			return &records[i], MatchPartial
		}
	}
	for i := range records {
		pkg := records[i].Field("Package/Source")
		if pkg != "" && (strings.Contains(pkg, serverName) || strings.Contains(serverName, pkg)) {
			return &records[i], MatchPackage
		}
	}
	for i := range records {
		if conn := records[i].Field("Connection URL/Command"); conn != "" && strings.Contains(conn, serverName) {
			return &records[i], MatchConnection
		}
	}
	return nil, MatchNone
}

type Metadata struct {
	RecordID             string `json:"airtable_record_id,omitempty"`
	ServerName           string `json:"server_name"`
	Description          string `json:"description"`
	Purpose              string `json:"purpose,omitempty"`
	ServerType           string `json:"server_type,omitempty"`
	DeploymentMethod     string `json:"deployment_method,omitempty"`
	CloudStatus          string `json:"fastmcp_cloud_status,omitempty"`
	CloudURL             string `json:"fastmcp_cloud_url,omitempty"`
	LocalPort            string `json:"local_port,omitempty"`
	PackageSource        string `json:"package_source,omitempty"`
	Connection           string `json:"connection,omitempty"`
	ConfigPath           string `json:"config_path,omitempty"`
	EnvironmentVariables string `json:"environment_variables,omitempty"`
	AvailableTools       string `json:"available_tools,omitempty"`
	SecurityNotes        string `json:"security_notes,omitempty"`
	AgentCount           int64  `json:"agent_count"`
	LastSynced           string `json:"last_synced"`
}

func MetadataFrom(rec *Record, now time.Time) *Metadata {
	return &Metadata{
		RecordID:             rec.ID,
		ServerName:           rec.Field("MCP Server Name"),
		Description:          rec.Field("Description"),
		Purpose:              rec.Field("Purpose"),
		ServerType:           rec.Field("Server Type"),
		DeploymentMethod:     rec.Field("Deployment Method"),
		CloudStatus:          rec.Field("FastMCP Cloud Status"),
		CloudURL:             rec.Field("FastMCP Cloud URL"),
		LocalPort:            rec.Field("Local Server Port"),
		PackageSource:        rec.Field("Package/Source"),
		Connection:           rec.Field("Connection URL/Command"),
		ConfigPath:           rec.Field("Configuration Path"),
		EnvironmentVariables: rec.Field("Environment Variables"),
		AvailableTools:       rec.Field("Available Tools"),
		SecurityNotes:        rec.Field("Security Notes"),
		AgentCount:           rec.Fields.Get("Agent Count").Int(),
		LastSynced:           now.UTC().Format(time.RFC3339),
	}
}

type EnvVar struct {
	Key   string
	Value string
}

// ParseEnvVars reads KEY=value lines, ignoring lines without '='.
func ParseEnvVars(s string) []EnvVar {
	var vars []EnvVar
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars = append(vars, EnvVar{Key: strings.TrimSpace(key), Value: strings.TrimSpace(val)})
	}
	return vars
}

type ServerEntry struct {
	Type    string            `json:"type,omitempty"`
	URL     string            `json:"url,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

type MCPConfig struct {
	Servers map[string]ServerEntry `json:"mcpServers"`
}

// DeploymentConfig renders the .mcp.json entry for the server: stdio for npx
// and script deployments, http for HTTP servers.
func DeploymentConfig(serverName string, md *Metadata) *MCPConfig {
	var entry ServerEntry
	switch {
	case md.DeploymentMethod == "npx" || md.DeploymentMethod == "Python Script":
		parts := strings.Fields(md.Connection)
		entry.Command = "npx"
		if len(parts) > 0 {
			entry.Command = parts[0]
			entry.Args = parts[1:]
		}
	case strings.Contains(md.ServerType, "HTTP"):
		entry.Type = "http"
		entry.URL = md.Connection
		if entry.URL == "" {
			entry.URL = "http://localhost:8000"
		}
	}

	if vars := ParseEnvVars(md.EnvironmentVariables); len(vars) > 0 {
		entry.Env = make(map[string]string, len(vars))
		for _, v := range vars {
			entry.Env[v.Key] = v.Value
		}
	}
	return &MCPConfig{Servers: map[string]ServerEntry{serverName: entry}}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func ReadmeSection(md *Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, `## Airtable Configuration

This server's configuration is synced from Airtable.

### Server Information

- **Name**: %s
- **Type**: %s
- **Deployment**: %s
- **Cloud Status**: %s
- **Agent Count**: %d

### Description

%s

### Purpose

%s

`, md.ServerName, md.ServerType, md.DeploymentMethod, md.CloudStatus, md.AgentCount,
		orDefault(md.Description, "No description"), orDefault(md.Purpose, "No purpose specified"))

	if md.CloudStatus == "Deployed" && md.CloudURL != "" {
		fmt.Fprintf(&b, "### FastMCP Cloud\n\n**Deployment URL**: %s\n\n", md.CloudURL)
	}
	if md.AvailableTools != "" {
		fmt.Fprintf(&b, "### Available Tools\n\n%s\n\n", md.AvailableTools)
	}
	if md.EnvironmentVariables != "" {
		fmt.Fprintf(&b, "### Environment Variables\n\n```bash\n%s\n```\n\n", md.EnvironmentVariables)
	}
	fmt.Fprintf(&b, "---\n*Last synced from Airtable: %s*\n*Airtable Record: %s*\n", md.LastSynced, md.RecordID)
	return b.String()
}

// EnvTemplate renders placeholder lines for every variable, or "" when there
// are none.
func EnvTemplate(md *Metadata) string {
	vars := ParseEnvVars(md.EnvironmentVariables)
	if len(vars) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, "%s=your_%s_here\n", v.Key, strings.ToLower(v.Key))
	}
	return b.String()
}

type Result struct {
	ServerName string    `json:"server_name"`
	Match      MatchKind `json:"match,omitempty"`
	Dir        string    `json:"dir"`
	Files      []string  `json:"files"`
}

// Lister is the part of Client used by Sync.
type Lister interface {
	ListRecords(ctx context.Context, table string) ([]Record, error)
}

type Syncer struct {
	lister Lister
	now    func() time.Time
	logger *slog.Logger
}

func NewSyncer(lister Lister, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{lister: lister, now: time.Now, logger: logger}
}

// Sync finds serverName and writes its files into dir. When no record
// matches only placeholder metadata is written.
func (s *Syncer) Sync(ctx context.Context, serverName, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	records, err := s.lister.ListRecords(ctx, ServersTable)
	if err != nil {
		return nil, err
	}
	s.logger.Info("searching airtable", "server", serverName, "normalized", NormalizeName(serverName), "records", len(records))

	res := &Result{ServerName: serverName, Dir: dir}
	rec, match := FindServer(records, serverName)
	if rec == nil {
		s.logger.Warn("server not found in airtable, writing placeholder", "server", serverName)
		md := &Metadata{
			ServerName:  serverName,
			Description: "No Airtable record found",
			LastSynced:  s.now().UTC().Format(time.RFC3339),
		}
		if err := s.writeJSON(res, MetadataFile, md); err != nil {
			return nil, err
		}
		return res, nil
	}
	res.Match = match
	s.logger.Info("found airtable record", "match", match, "record", rec.ID, "name", rec.Field("MCP Server Name"))

	md := MetadataFrom(rec, s.now())
	if err := s.writeJSON(res, MetadataFile, md); err != nil {
		return nil, err
	}
	if err := s.writeJSON(res, ConfigFile, DeploymentConfig(serverName, md)); err != nil {
		return nil, err
	}
	if err := s.writeFile(res, ReadmeFile, ReadmeSection(md)); err != nil {
		return nil, err
	}
	if env := EnvTemplate(md); env != "" {
		if err := s.writeFile(res, EnvFile, env); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Syncer) writeJSON(res *Result, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.writeFile(res, name, string(data)+"\n")
}

func (s *Syncer) writeFile(res *Result, name, content string) error {
	path := filepath.Join(res.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	res.Files = append(res.Files, path)
	return nil
}

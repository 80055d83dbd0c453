package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validGateway = `
[proxy]
id = "edge-1"

[network.default]
enable_wireguard = false

[network.default.http]
bind_port = 8080

[management]
enabled = true
network = "default"

[services.fhir]
module = "fhir"
`

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	// A config path that does not exist selects defaults plus env.
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)

	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	gateway := writeFile(t, dir, "gateway.toml", validGateway)
	mesh := writeFile(t, dir, "mesh.toml", "[mesh.core]\nenabled = 1\n")
	pipeline := writeFile(t, dir, "edge.toml", "[endpoints.in]\nservice = \"fhir\"\n")
	broken := writeFile(t, dir, "remote-ingress.toml", "[remote_ingress\n")

	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:     "valid gateway infers domain",
			args:     []string{"validate", gateway},
			wantCode: exitOK,
			wantOut:  "valid (gateway schema 1.8.0)",
		},
		{
			name:     "invalid mesh",
			args:     []string{"validate", mesh},
			wantCode: exitInvalid,
			wantOut:  "TypeMismatch",
		},
		{
			name:     "pipeline without gateway",
			args:     []string{"validate", pipeline, "--domain", "pipeline"},
			wantCode: exitInvalid,
			wantOut:  "UnresolvedReference",
		},
		{
			name:     "pipeline with gateway",
			args:     []string{"validate", pipeline, "--domain", "pipeline", "--gateway", gateway},
			wantCode: exitOK,
			wantOut:  "valid (pipeline schema 1.8.0)",
		},
		{
			name:     "one invalid among many",
			args:     []string{"validate", gateway, mesh},
			wantCode: exitInvalid,
			wantOut:  "mesh.toml: 1 problem",
		},
		{
			name:     "stdin",
			args:     []string{"validate", "-", "--domain", "mesh"},
			stdin:    "[mesh.core]\n",
			wantCode: exitOK,
			wantOut:  "<stdin>: valid",
		},
		{
			name:     "stdin needs domain",
			args:     []string{"validate", "-"},
			wantCode: exitUsage,
			wantErr:  "requires --domain",
		},
		{
			name:     "uninferable domain",
			args:     []string{"validate", pipeline},
			wantCode: exitUsage,
			wantErr:  "pass --domain",
		},
		{
			name:     "unknown domain",
			args:     []string{"validate", pipeline, "--domain", "proxy"},
			wantCode: exitUsage,
			wantErr:  `unknown domain "proxy"`,
		},
		{
			name:     "no files",
			args:     []string{"validate"},
			wantCode: exitUsage,
		},
		{
			name:     "unknown format",
			args:     []string{"validate", gateway, "--format", "csv"},
			wantCode: exitUsage,
			wantErr:  `unknown format "csv"`,
		},
		{
			name:     "unknown flag",
			args:     []string{"validate", gateway, "--strict"},
			wantCode: exitUsage,
		},
		{
			name:     "syntax error",
			args:     []string{"validate", broken},
			wantCode: exitInvalid,
			wantErr:  "remote-ingress.toml",
		},
		{
			name:     "missing file",
			args:     []string{"validate", filepath.Join(dir, "mesh-missing.toml"), "--domain", "mesh"},
			wantCode: exitInvalid,
			wantErr:  "read ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runCLI(t, tt.stdin, tt.args...)
			if got.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstdout: %s\nstderr: %s", got.code, tt.wantCode, got.stdout, got.stderr)
			}
			if tt.wantOut != "" && !strings.Contains(got.stdout, tt.wantOut) {
				t.Errorf("stdout missing %q:\n%s", tt.wantOut, got.stdout)
			}
			if tt.wantErr != "" && !strings.Contains(got.stderr, tt.wantErr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantErr, got.stderr)
			}
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	got := runCLI(t, "[mesh.core]\nenabled = 1\n", "validate", "-", "-d", "mesh", "-o", "json")
	if got.code != exitInvalid {
		t.Fatalf("exit code = %d, want %d: %s", got.code, exitInvalid, got.stderr)
	}

	var rep struct {
		Domain      string `json:"domain"`
		Valid       bool   `json:"valid"`
		Diagnostics []struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(got.stdout), &rep); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, got.stdout)
	}
	if rep.Valid || rep.Domain != "mesh" || len(rep.Diagnostics) != 1 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Diagnostics[0].Path != "mesh.core.enabled" || rep.Diagnostics[0].Kind != "TypeMismatch" {
		t.Errorf("diagnostic = %+v", rep.Diagnostics[0])
	}
}

func TestSchemaCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		got := runCLI(t, "", "schema", "list")
		if got.code != exitOK {
			t.Fatalf("exit code = %d: %s", got.code, got.stderr)
		}
		for _, want := range []string{"DOMAIN", "gateway", "1.8.0", "remote-ingress", "1.0.0"} {
			if !strings.Contains(got.stdout, want) {
				t.Errorf("list output missing %q:\n%s", want, got.stdout)
			}
		}
	})

	t.Run("show", func(t *testing.T) {
		got := runCLI(t, "", "schema", "show", "mesh")
		if got.code != exitOK || !strings.Contains(got.stdout, `domain = "mesh"`) {
			t.Errorf("show = %d, %s", got.code, got.stdout)
		}
		if got := runCLI(t, "", "schema", "show", "proxy"); got.code != exitUsage {
			t.Errorf("show proxy exit code = %d, want %d", got.code, exitUsage)
		}
	})

	dir := t.TempDir()
	oldSchema := writeFile(t, dir, "old.toml", `schema_version = "1.0.0"
domain = "mesh"

[schema.mesh."*".enabled]
type = "boolean"
`)
	compatible := writeFile(t, dir, "compatible.toml", `schema_version = "1.1.0"
domain = "mesh"

[schema.mesh."*".enabled]
type = "boolean"

[schema.mesh."*".description]
type = "string"
`)
	breaking := writeFile(t, dir, "breaking.toml", `schema_version = "1.1.0"
domain = "mesh"

[schema.mesh."*".description]
type = "string"
`)
	unversioned := writeFile(t, dir, "unversioned.toml", "domain = \"mesh\"\n[schema]\n")
	gatewaySchema := writeFile(t, dir, "gw.toml", "schema_version = \"1.0.0\"\ndomain = \"gateway\"\n[schema]\n")

	t.Run("check", func(t *testing.T) {
		got := runCLI(t, "", "schema", "check", oldSchema)
		if got.code != exitOK || !strings.Contains(got.stdout, "ok (mesh schema 1.0.0") {
			t.Errorf("check = %d, %s", got.code, got.stdout)
		}

		got = runCLI(t, "", "schema", "check", oldSchema, unversioned)
		if got.code != exitInvalid || !strings.Contains(got.stdout, "schema_version is not declared") {
			t.Errorf("check unversioned = %d, %s", got.code, got.stdout)
		}

		got = runCLI(t, "", "schema", "check", oldSchema, "--domain", "gateway")
		if got.code != exitInvalid {
			t.Errorf("check with wrong domain exit code = %d, want %d", got.code, exitInvalid)
		}
	})

	t.Run("diff", func(t *testing.T) {
		got := runCLI(t, "", "schema", "diff", oldSchema, compatible)
		if got.code != exitOK || !strings.Contains(got.stdout, "No breaking changes.") {
			t.Errorf("compatible diff = %d, %s %s", got.code, got.stdout, got.stderr)
		}

		got = runCLI(t, "", "schema", "diff", oldSchema, breaking)
		if got.code != exitInvalid || !strings.Contains(got.stdout, "field_removed") {
			t.Errorf("breaking diff = %d, %s", got.code, got.stdout)
		}

		got = runCLI(t, "", "schema", "diff", oldSchema, gatewaySchema)
		if got.code != exitInvalid || !strings.Contains(got.stderr, "gateway schema") {
			t.Errorf("cross-domain diff = %d, %s", got.code, got.stderr)
		}

		if got := runCLI(t, "", "schema", "diff", oldSchema); got.code != exitUsage {
			t.Errorf("diff with one file exit code = %d, want %d", got.code, exitUsage)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	got := runCLI(t, "", "version")
	if got.code != exitOK {
		t.Fatalf("exit code = %d", got.code)
	}
	for _, want := range []string{"harmony-dsl dev", "schema:  gateway 1.8.0", "schema:  mesh 1.0.0"} {
		if !strings.Contains(got.stdout, want) {
			t.Errorf("version output missing %q:\n%s", want, got.stdout)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	got := runCLI(t, "", "lint")
	if got.code != exitUsage {
		t.Errorf("exit code = %d, want %d", got.code, exitUsage)
	}
	if !strings.Contains(got.stderr, "harmony-dsl --help") {
		t.Errorf("stderr = %q", got.stderr)
	}
}

func TestDomainFor(t *testing.T) {
	tests := []struct {
		flag, path string
		want       string
		wantErr    bool
	}{
		{"", "configs/gateway.toml", "gateway", false},
		{"", "remote-ingress.toml", "remote-ingress", false},
		{"mesh", "anything.toml", "mesh", false},
		{"", "pipeline-a.toml", "", true},
		{"bogus", "gateway.toml", "", true},
	}

	for _, tt := range tests {
		got, err := domainFor(tt.flag, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("domainFor(%q, %q) error = %v, wantErr %v", tt.flag, tt.path, err, tt.wantErr)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("domainFor(%q, %q) = %q, want %q", tt.flag, tt.path, got, tt.want)
		}
	}
}

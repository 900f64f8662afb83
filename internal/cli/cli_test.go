package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqc/seqc/internal/config"
)

func TestParseArgsFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *options
		wantErr string
	}{
		{
			name: "bare source file",
			args: []string{"main.seq"},
			want: &options{input: "main.seq"},
		},
		{
			name: "output and target",
			args: []string{"-o", "out.ll", "-target", "x86_64-linux-gnu", "main.seq"},
			want: &options{input: "main.seq", output: "out.ll", target: "x86_64-linux-gnu"},
		},
		{
			name: "check and test flags",
			args: []string{"-check", "-test", "main.seq"},
			want: &options{input: "main.seq", checkOnly: true, testMode: true},
		},
		{
			name: "long flag spellings",
			args: []string{"--output", "out.ll", "--check", "main.seq"},
			want: &options{input: "main.seq", output: "out.ll", checkOnly: true},
		},
		{
			name:    "missing output argument",
			args:    []string{"-o"},
			wantErr: "requires a path argument",
		},
		{
			name:    "unrecognized flag",
			args:    []string{"-bogus", "main.seq"},
			wantErr: "unrecognized flag",
		},
		{
			name:    "two source files",
			args:    []string{"a.seq", "b.seq"},
			wantErr: "unexpected extra argument",
		},
		{
			name:    "no source file",
			args:    []string{"-check"},
			wantErr: "no source file given",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunWritesIRToStdoutByDefault(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.seq")
	require.NoError(t, os.WriteFile(src, []byte(": main ( -- )\n  1 2 i.+ drop\n;\n"), 0644))

	config.IsTestMode = false
	err := run(&options{input: src})
	assert.NoError(t, err)
}

func TestRunWritesIRToFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.seq")
	out := filepath.Join(dir, "main.ll")
	require.NoError(t, os.WriteFile(src, []byte(": main ( -- )\n  1 2 i.+ drop\n;\n"), 0644))

	err := run(&options{input: src, output: out})
	require.NoError(t, err)

	ir, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(ir), "target triple")
}

func TestRunCheckOnlyRejectsUnknownWord(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.seq")
	require.NoError(t, os.WriteFile(src, []byte(": main ( -- )\n  nonexistent-word\n;\n"), 0644))

	err := run(&options{input: src, checkOnly: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "T301")
}

func TestRunMissingSourceFile(t *testing.T) {
	err := run(&options{input: "/nonexistent/path/does-not-exist.seq"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

func TestFormatErrorColorsPlainWithoutTerminal(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	src := filepath.Join(dir, "main.seq")
	require.NoError(t, os.WriteFile(src, []byte(": main ( -- )\n  nonexistent-word\n;\n"), 0644))

	err := run(&options{input: src, checkOnly: true})
	require.Error(t, err)
	msg := formatError(err)
	assert.Contains(t, msg, "T301")
	assert.NotContains(t, msg, "\x1b[")
}

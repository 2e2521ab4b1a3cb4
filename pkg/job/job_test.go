package job

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/drc"
)

var created = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

// demoProject copies the demo project into a temporary directory so that
// exports do not touch the source tree.
func demoProject(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../board/testdata/demo.otfp")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "demo.otfp")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type result struct {
	ok     bool
	err    error
	stdout string
	stderr string
}

func run(t *testing.T, ctx context.Context, opts Options) result {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Created = created
	ok, err := NewRunner(&out, &errOut, opts).Run(ctx)
	return result{ok: ok, err: err, stdout: out.String(), stderr: errOut.String()}
}

func TestExportFabricationData(t *testing.T) {
	project := demoProject(t)
	res := run(t, context.Background(), Options{
		ProjectFile:           project,
		ExportFabricationData: true,
		PnPTop:                []string{"./assembly/{{BOARD}}_top.csv"},
		PnPBottom:             []string{"./assembly/{{BOARD}}_bot.gbr"},
	})
	require.NoError(t, res.err)
	assert.True(t, res.ok, res.stderr)
	assert.Empty(t, res.stderr)

	for _, want := range []string{
		"Open project '" + project + "'...\n",
		"Export PCB fabrication data for 'default'...\n",
		"  => 'output/1.0/gerber/Demo_Board_DRILLS-NPTH.drl'\n",
		"  => 'output/1.0/gerber/Demo_Board_SILKSCREEN-BOTTOM.gbr'\n",
		"Export top assembly data to './assembly/{{BOARD}}_top.csv'...\n",
		"  - 'default' => 'assembly/default_top.csv'\n",
		"  - 'default' => 'assembly/default_bot.gbr'\n",
	} {
		assert.Contains(t, res.stdout, want)
	}
	assert.True(t, strings.HasSuffix(res.stdout, "SUCCESS\n"), res.stdout)

	dir := filepath.Dir(project)
	csv, err := os.ReadFile(filepath.Join(dir, "assembly", "default_top.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "R1,10k,Resistor 0603,R0603,10,10,0,Top,SMT\n")
	assert.FileExists(t, filepath.Join(dir, "assembly", "default_bot.gbr"))
	assert.FileExists(t, filepath.Join(dir, "output", "1.0", "gerber", "Demo_Board_COPPER-TOP.gbr"))
}

func TestRunDRCReportsMessages(t *testing.T) {
	res := run(t, context.Background(), Options{ProjectFile: demoProject(t), RunDRC: true})
	require.NoError(t, res.err)
	assert.False(t, res.ok)
	assert.Contains(t, res.stdout, "Run DRC for 'default'...\n")
	assert.Contains(t, res.stdout, "  Approved messages: ")
	assert.Contains(t, res.stdout, "  Non-approved messages: ")
	assert.Contains(t, res.stderr, "    - [")
	assert.True(t, strings.HasSuffix(res.stdout, "Finished with errors!\n"), res.stdout)
}

func TestRunDRCWithApprovalsFile(t *testing.T) {
	project := demoProject(t)
	p, err := board.LoadProject(project)
	require.NoError(t, err)
	messages, err := drc.Run(context.Background(), p.Boards[0], drc.DefaultSettings(), drc.Options{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, messages)

	approvals := drc.Approvals{}
	for _, m := range messages {
		require.NoError(t, approvals.Add(m.ApprovalKey))
	}
	var buf bytes.Buffer
	require.NoError(t, drc.WriteApprovals(&buf, approvals))
	settings := writeTemp(t, "drc.lp", drc.DefaultSettings().Serialize().String())

	res := run(t, context.Background(), Options{
		ProjectFile:     project,
		RunDRC:          true,
		DRCSettingsFile: settings,
		ApprovalsFile:   writeTemp(t, "approvals.lp", buf.String()),
	})
	require.NoError(t, res.err)
	assert.True(t, res.ok, res.stderr)
	assert.Contains(t, res.stdout, "  Non-approved messages: 0\n")
}

func TestMalformedCustomSettings(t *testing.T) {
	tests := []struct {
		name string
		opts func(project, bad string) Options
		skip string
	}{
		{
			name: "drc",
			opts: func(project, bad string) Options {
				return Options{ProjectFile: project, RunDRC: true, DRCSettingsFile: bad}
			},
			skip: "Run DRC for",
		},
		{
			name: "fabrication",
			opts: func(project, bad string) Options {
				return Options{ProjectFile: project, ExportFabricationData: true, FabricationSettingsFile: bad}
			},
			skip: "Export PCB fabrication data for",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := writeTemp(t, "settings.lp", "(settings (nonsense")
			res := run(t, context.Background(), tt.opts(demoProject(t), bad))
			require.NoError(t, res.err)
			assert.False(t, res.ok)
			assert.Contains(t, res.stderr, "ERROR: Failed to load custom settings: ")
			assert.NotContains(t, res.stdout, tt.skip)
		})
	}
}

func TestBoardSelection(t *testing.T) {
	tests := []struct {
		name    string
		boards  []string
		indices []string
		wantErr string
	}{
		{name: "by name", boards: []string{"default", "default"}},
		{name: "by index", indices: []string{" 0 "}},
		{name: "unknown name", boards: []string{"rev-b"}, wantErr: "ERROR: No board with the name 'rev-b' found.\n"},
		{name: "index out of range", indices: []string{"1"}, wantErr: "ERROR: Board index '1' is invalid.\n"},
		{name: "index not a number", indices: []string{"first"}, wantErr: "ERROR: Board index 'first' is invalid.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, context.Background(), Options{
				ProjectFile:  demoProject(t),
				PnPTop:       []string{"pnp.csv"},
				Boards:       tt.boards,
				BoardIndices: tt.indices,
			})
			require.NoError(t, res.err)
			if tt.wantErr != "" {
				assert.False(t, res.ok)
				assert.Contains(t, res.stderr, tt.wantErr)
				return
			}
			assert.True(t, res.ok, res.stderr)
			assert.Equal(t, 1, strings.Count(res.stdout, "  - 'default' => 'pnp.csv'"))
		})
	}
}

func TestDuplicateOutput(t *testing.T) {
	res := run(t, context.Background(), Options{
		ProjectFile: demoProject(t),
		PnPTop:      []string{"pnp.csv"},
		PnPBottom:   []string{"pnp.csv"},
	})
	require.NoError(t, res.err)
	assert.False(t, res.ok)
	assert.Contains(t, res.stderr, "ERROR: The file 'pnp.csv' was written multiple times!\n")
	assert.Contains(t, res.stderr, "'{{BOARD}}'")
	assert.True(t, strings.HasSuffix(res.stdout, "Finished with errors!\n"))
}

func TestUnknownPickPlaceExtension(t *testing.T) {
	res := run(t, context.Background(), Options{ProjectFile: demoProject(t), PnPTop: []string{"pnp.xlsx"}})
	require.NoError(t, res.err)
	assert.False(t, res.ok)
	assert.Contains(t, res.stderr, "  ERROR: Unknown extension 'xlsx'.\n")
}

func TestMissingProject(t *testing.T) {
	res := run(t, context.Background(), Options{ProjectFile: filepath.Join(t.TempDir(), "none.otfp")})
	require.NoError(t, res.err)
	assert.False(t, res.ok)
	assert.Contains(t, res.stderr, "ERROR: failed to open project")
	assert.True(t, strings.HasSuffix(res.stdout, "Finished with errors!\n"))
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := run(t, ctx, Options{ProjectFile: demoProject(t), RunDRC: true})
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.False(t, res.ok)
	assert.NotContains(t, res.stdout, "SUCCESS")
}

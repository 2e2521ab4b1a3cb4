package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoFile = "../../../pkg/board/testdata/demo.otfp"

func demoProject(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(demoFile)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "demo.otfp")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func resetFlags() {
	verbose = false
	runDRC, quickDRC, exportFabData, showNets, viewDRC = false, false, false, false, false
	drcSettingsFile, approvalsFile, fabSettingsFile, creationDate, viewBoard = "", "", "", "", ""
	pnpTopFiles, pnpBottomFiles, boardNames, boardIndices = nil, nil, nil, nil
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// TestCommandsE2E runs the commands end-to-end on the demo project
func TestCommandsE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        func(project string) []string
		wantErr     error
		anyErr      bool
		wantContain []string
	}{
		{
			name: "info",
			args: func(p string) []string { return []string{"info", p} },
			wantContain: []string{
				"Project: Demo Board\n",
				"Version: 1.0\n",
				"default",
				"50.00 x 40.00 mm",
			},
		},
		{
			name: "info with nets",
			args: func(p string) []string { return []string{"info", "--nets", p} },
			wantContain: []string{
				"Board 'default': ",
				"Net Name",
				"GND",
				"VCC",
			},
		},
		{
			name:        "drc reports messages",
			args:        func(p string) []string { return []string{"drc", p} },
			wantErr:     errFailed,
			wantContain: []string{"Run DRC for 'default'...", "Finished with errors!"},
		},
		{
			name: "export fabrication data",
			args: func(p string) []string {
				return []string{"open-project", p, "--export-pcb-fabrication-data", "--date", "2024-05-01T12:30:00Z",
					"--export-pnp-top", "pnp/{{BOARD}}_top.csv", "--board", "default"}
			},
			wantContain: []string{
				"Export PCB fabrication data for 'default'...",
				"  - 'default' => 'pnp/default_top.csv'",
				"SUCCESS",
			},
		},
		{
			name: "invalid date",
			args: func(p string) []string {
				return []string{"open-project", p, "--date", "yesterday"}
			},
			anyErr: true,
		},
		{
			name:   "missing project argument",
			args:   func(string) []string { return []string{"open-project"} },
			anyErr: true,
		},
		{
			name:    "unknown board",
			args:    func(p string) []string { return []string{"open-project", p, "--board", "rev-b"} },
			wantErr: errFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args(demoProject(t))...)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
			}
			for _, want := range tt.wantContain {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestExportIsReproducible(t *testing.T) {
	project := demoProject(t)
	gerber := filepath.Join(filepath.Dir(project), "output", "1.0", "gerber", "Demo_Board_COPPER-TOP.gbr")

	args := []string{"open-project", project, "--export-pcb-fabrication-data", "--date", "2024-05-01T12:30:00Z"}
	_, _, err := execute(t, args...)
	require.NoError(t, err)
	first, err := os.ReadFile(gerber)
	require.NoError(t, err)

	_, _, err = execute(t, args...)
	require.NoError(t, err)
	second, err := os.ReadFile(gerber)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "%TF.CreationDate,2024-05-01T12:30:00")
}

func TestLoadScene(t *testing.T) {
	scene, err := loadScene(context.Background(), demoFile, "", false)
	require.NoError(t, err)
	assert.Equal(t, "default", scene.Title)
	assert.Empty(t, scene.Markers)

	withDRC, err := loadScene(context.Background(), demoFile, "default", true)
	require.NoError(t, err)
	assert.NotEmpty(t, withDRC.Markers)

	_, err = loadScene(context.Background(), demoFile, "rev-b", false)
	assert.ErrorContains(t, err, "no board with the name 'rev-b' found")
}

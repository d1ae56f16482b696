package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightcli/internal/shared/testutil"
)

var header = []interface{}{"发货日期", "车牌号", "类别", "发往地", "重量（吨）", "卖出价", "扣点", "运费", "预估利润"}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FREIGHT_PATHS_EXECUTABLE_DIR", dir)
	t.Setenv("FREIGHT_REPORT_CHARTS", "false")
	t.Setenv("FREIGHT_REPORT_OPEN_BROWSER", "false")
	return dir
}

func writeWorkbook(t *testing.T, price float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "明细.xlsx")
	testutil.WriteWorkbook(t, path, []string{"5月"}, map[string][][]interface{}{
		"5月": {
			{"五月"},
			header,
			{45413, "鲁B1", "钢材", "济南", 30, price, 0.5, 3000, 1200},
			{45414, "鲁B2", "煤炭", "青岛", 25, price, 0.4, 2600, 500},
		},
	})
	return path
}

func TestRun_ListsSheets(t *testing.T) {
	setupEnv(t)
	file := writeWorkbook(t, 320)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", file}, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "1. 5月")
}

func TestRun_DefaultsToNewestInputWorkbook(t *testing.T) {
	dir := setupEnv(t)
	input := filepath.Join(dir, "data", "input")
	require.NoError(t, os.MkdirAll(input, 0o755))
	data, err := os.ReadFile(writeWorkbook(t, 320))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(input, "最新.xlsx"), data, 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "最新.xlsx")
	assert.Contains(t, stdout.String(), "1. 5月")
}

func TestRun_WritesArtifacts(t *testing.T) {
	setupEnv(t)
	file := writeWorkbook(t, 320)
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", file, "-sheets", " 5月 ,", "-out", out, "-no-cache"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	text := stdout.String()
	assert.Contains(t, text, "[100%]")
	assert.Contains(t, text, "5月: 2 rows kept of 2")
	assert.Contains(t, text, "dashboard")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, "5月_仪表板_")
	assert.Contains(t, joined, "5月_清洗后数据_")
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want int
	}{
		{
			name: "no file and empty input dir",
			args: func(t *testing.T) []string { return nil },
			want: exitFailure,
		},
		{
			name: "help",
			args: func(t *testing.T) []string { return []string{"-h"} },
			want: exitOK,
		},
		{
			name: "no valid data",
			args: func(t *testing.T) []string {
				return []string{"-file", writeWorkbook(t, 1), "-sheets", "5月", "-out", t.TempDir()}
			},
			want: exitNoValidData,
		},
		{
			name: "unknown sheet",
			args: func(t *testing.T) []string {
				return []string{"-file", writeWorkbook(t, 320), "-sheets", "12月", "-out", t.TempDir()}
			},
			want: exitFailure,
		},
		{
			name: "not a workbook",
			args: func(t *testing.T) []string {
				return []string{"-file", filepath.Join(t.TempDir(), "data.txt"), "-sheets", "5月"}
			},
			want: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args(t), &stdout, &stderr)
			assert.Equal(t, tt.want, code, stderr.String())
		})
	}
}

func TestSplitSheets(t *testing.T) {
	assert.Nil(t, splitSheets(""))
	assert.Nil(t, splitSheets(" , "))
	assert.Equal(t, []string{"3月", "4月"}, splitSheets("3月, 4月,"))
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "freight-analyzer v")
}

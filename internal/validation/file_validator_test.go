package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator_ValidateSpreadsheet(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "xlsx file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "march.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
		},
		{
			name: "upper case csv extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "APRIL.CSV")
				require.NoError(t, os.WriteFile(file, []byte("a,b\n"), 0644))
				return file
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.xlsx")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "folder.xlsx")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "notes.txt")
				require.NoError(t, os.WriteFile(file, []byte("hi"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "not a supported spreadsheet",
		},
		{
			name: "office lock file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "~$march.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("lock"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())

			err := validator.ValidateSpreadsheet(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "exports", "march")

	require.NoError(t, validator.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err), "probe file must be removed")
}

func TestIsSpreadsheetName(t *testing.T) {
	for name, want := range map[string]bool{
		"a.xlsx":    true,
		"a.XLSM":    true,
		"dir/a.csv": true,
		"a.xls":     false,
		"a.json":    false,
		"no-ext":    false,
		"a.csv.bak": false,
	} {
		assert.Equal(t, want, IsSpreadsheetName(name), name)
	}
}

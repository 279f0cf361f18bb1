package pkgresolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageName_StdLib(t *testing.T) {
	r := New()

	tests := []struct {
		importPath  string
		wantPkgName string
	}{
		{"fmt", "fmt"},
		{"database/sql", "sql"},
		{"database/sql/driver", "driver"},
		{"encoding/json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			assert.Equal(t, tt.wantPkgName, r.PackageName(tt.importPath, ""))
		})
	}
}

// 文件夹是 gg，但 package 声明是 g2
func TestPackageName_MismatchedPkgName(t *testing.T) {
	r := New()
	self, err := r.ImportPath(".")
	require.NoError(t, err)

	assert.Equal(t, "g2", r.PackageName(self+"/testdata/gg", "."))
}

func TestPackageName_Fallback(t *testing.T) {
	r := New()

	tests := []struct {
		importPath  string
		wantPkgName string
	}{
		{"example.invalid/not/found", "found"},
		{"example.invalid/foo/v2", "foo"},
		{"example.invalid/go-enums", "go_enums"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			assert.Equal(t, tt.wantPkgName, r.PackageName(tt.importPath, t.TempDir()))
		})
	}
}

func TestPackageName_Cache(t *testing.T) {
	r := New()
	first := r.PackageName("fmt", "")
	second := r.PackageName("fmt", "")
	assert.Equal(t, first, second)
	assert.Contains(t, r.names, "fmt")
}

func TestImportPath(t *testing.T) {
	r := New()

	got, err := r.ImportPath("testdata/mod/sub")
	require.NoError(t, err)
	assert.Equal(t, "example.com/enums/sub", got)

	got, err = r.ImportPath("testdata/mod")
	require.NoError(t, err)
	assert.Equal(t, "example.com/enums", got)

	// 同一模块内的包按目录读取真实包名
	assert.Equal(t, "subpkg", r.PackageName("example.com/enums/sub", "testdata/mod"))
}

func TestImportPath_NoModule(t *testing.T) {
	dir := t.TempDir()
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "go.mod")); err == nil {
		t.Skip("临时目录位于某个模块中")
	}
	_, err := New().ImportPath(dir)
	assert.Error(t, err)
}

func TestIsStdLib(t *testing.T) {
	tests := []struct {
		importPath string
		want       bool
	}{
		{"context", true},
		{"crypto/sha256", true},
		{"golang.org/x/tools", false},
		{"github.com/pkg/errors", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsStdLib(tt.importPath), tt.importPath)
	}
}

func TestReadPackageName(t *testing.T) {
	var reader PackageFileReader

	name, err := reader.ReadPackageName("testdata/gg")
	require.NoError(t, err)
	assert.Equal(t, "g2", name)

	_, err = reader.ReadPackageName("testdata")
	assert.Error(t, err, "testdata 下没有 Go 文件")

	_, err = reader.ReadPackageName("testdata/missing")
	assert.Error(t, err)
}

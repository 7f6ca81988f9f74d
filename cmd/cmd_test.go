package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4admin/internal/auth"
	"github.com/slmtnm/s4admin/internal/devserver"
)

// TestCommandStructure verifies that all commands are properly registered
func TestCommandStructure(t *testing.T) {
	commands := []string{"browse", "ls", "upload", "watch", "serve", "token", "setup"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, cmd)
			require.NotEmpty(t, cmd.Use)
			require.NotEmpty(t, cmd.Short)
		})
	}
}

func TestRootCommandExists(t *testing.T) {
	require.Equal(t, "s4admin", rootCmd.Use)
	require.NotNil(t, rootCmd.RunE)
	require.NotNil(t, rootCmd.Flags().Lookup("pick"))
}

// testEnv starts a development API and writes a config file pointing at it.
func testEnv(t *testing.T) (configFile string, store *devserver.MemoryStore) {
	t.Helper()

	store = devserver.NewMemoryStore("https://cdn.example.com")
	catalog, err := devserver.OpenCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	ts := httptest.NewServer(devserver.New(store, catalog, devserver.Options{}).Handler())
	t.Cleanup(ts.Close)

	configFile = filepath.Join(t.TempDir(), ".s4admin")
	body := "[default]\napi_base = " + ts.URL + "\ntoken_file = " + filepath.Join(t.TempDir(), "none") + "\nlog_level = error\n\n" +
		"[server]\njwt_secret = test-secret\n"
	require.NoError(t, os.WriteFile(configFile, []byte(body), 0o600))
	t.Setenv("S4ADMIN_TOKEN", "")
	t.Setenv("S4ADMIN_API_BASE", "")
	return configFile, store
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLsAndUpload(t *testing.T) {
	r := require.New(t)

	configFile, store := testEnv(t)
	r.NoError(store.Put(context.Background(), "boats/hull.png", "image/png", strings.NewReader("png"), 3))

	out, err := execute(t, "--config", configFile, "ls")
	r.NoError(err)
	r.Contains(out, "boats/")

	img := filepath.Join(t.TempDir(), "bow.png")
	r.NoError(os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	out, err = execute(t, "--config", configFile, "upload", "--path", "boats", img)
	r.NoError(err)
	r.Contains(out, "https://cdn.example.com/boats/bow.png")

	out, err = execute(t, "--config", configFile, "ls", "boats")
	r.NoError(err)
	r.Contains(out, "hull.png")
	r.Contains(out, "bow.png")
}

func TestUploadDropRejectsNonImages(t *testing.T) {
	configFile, _ := testEnv(t)

	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("text"), 0o600))

	_, err := execute(t, "--config", configFile, "upload", "--path", "", "--drop", doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "image")

	// Reset for other tests sharing the package-level flags.
	uploadDrop = false
}

func TestTokenIssuesVerifiableJWT(t *testing.T) {
	r := require.New(t)

	configFile, _ := testEnv(t)
	out, err := execute(t, "--config", configFile, "token", "--subject", "editor", "--ttl", "1h")
	r.NoError(err)

	subject, err := auth.Verify([]byte("test-secret"), strings.TrimSpace(out))
	r.NoError(err)
	r.Equal("editor", subject)

	exp, ok := auth.Expiry(strings.TrimSpace(out))
	r.True(ok)
	r.WithinDuration(time.Now().Add(time.Hour), exp, time.Minute)
}

func TestSetupWritesConfig(t *testing.T) {
	r := require.New(t)

	target := filepath.Join(t.TempDir(), "cfg")
	rootCmd.SetIn(strings.NewReader("https://admin.example.com/api\n\n"))
	defer rootCmd.SetIn(nil)

	out, err := execute(t, "setup", "--output", target)
	r.NoError(err)
	r.Contains(out, "Configuration saved")

	data, err := os.ReadFile(target)
	r.NoError(err)
	r.Contains(string(data), "https://admin.example.com/api")
}

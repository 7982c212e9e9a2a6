package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestVaultGet(t *testing.T) {
	v, err := NewVault(func() (map[string]string, error) {
		return map[string]string{"API_KEY": "k1"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get("API_KEY"); got != "k1" {
		t.Errorf("Get = %q, want k1", got)
	}
	if got := v.Get("MISSING"); got != "" {
		t.Errorf("Get missing key = %q, want empty", got)
	}
}

func TestVaultInitialLoadError(t *testing.T) {
	loadErr := errors.New("source down")
	if _, err := NewVault(func() (map[string]string, error) {
		return nil, loadErr
	}); !errors.Is(err, loadErr) {
		t.Errorf("error = %v, want wrapped load error", err)
	}
}

func TestVaultReloadKeepsOldValuesOnError(t *testing.T) {
	calls := 0
	v, err := NewVault(func() (map[string]string, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("source down")
		}
		return map[string]string{"API_KEY": "k1"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Reload(); err == nil {
		t.Fatal("Reload succeeded, want error")
	}
	if got := v.Get("API_KEY"); got != "k1" {
		t.Errorf("Get after failed reload = %q, want k1", got)
	}
}

func TestVaultReload(t *testing.T) {
	val := "before"
	v, err := NewVault(func() (map[string]string, error) {
		return map[string]string{"API_KEY": val}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	val = "after"
	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get("API_KEY"); got != "after" {
		t.Errorf("Get after reload = %q, want after", got)
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("SECRET_A", "va")
	os.Unsetenv("SECRET_B")

	vals, err := EnvLoader("SECRET_A", "SECRET_B")()
	if err != nil {
		t.Fatalf("EnvLoader: %v", err)
	}
	if vals["SECRET_A"] != "va" {
		t.Errorf("SECRET_A = %q", vals["SECRET_A"])
	}
	if _, ok := vals["SECRET_B"]; ok {
		t.Error("unset variable present in result")
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api_key")
	if err := os.WriteFile(path, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SECRET_C_FILE", path)
	os.Unsetenv("SECRET_D_FILE")

	vals, err := FileLoader("SECRET_C", "SECRET_D")()
	if err != nil {
		t.Fatalf("FileLoader: %v", err)
	}
	if vals["SECRET_C"] != "file-secret" {
		t.Errorf("SECRET_C = %q, want trimmed file content", vals["SECRET_C"])
	}
	if _, ok := vals["SECRET_D"]; ok {
		t.Error("key without _FILE variable present in result")
	}
}

func TestFileLoaderUnreadable(t *testing.T) {
	t.Setenv("SECRET_E_FILE", filepath.Join(t.TempDir(), "missing"))

	if _, err := FileLoader("SECRET_E")(); err == nil {
		t.Error("unreadable secret file did not error")
	}
}

func TestChainLaterOverrides(t *testing.T) {
	first := func() (map[string]string, error) {
		return map[string]string{"A": "1", "B": "1"}, nil
	}
	second := func() (map[string]string, error) {
		return map[string]string{"B": "2"}, nil
	}

	vals, err := Chain(first, second)()
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if vals["A"] != "1" || vals["B"] != "2" {
		t.Errorf("vals = %v, want A=1 B=2", vals)
	}
}

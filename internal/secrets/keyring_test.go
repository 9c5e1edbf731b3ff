package secrets

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	keyring.MockInit()

	if err := Set(AccountOpenAI, "sk-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := Get(AccountOpenAI)
	if err != nil || got != "sk-test" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := Delete(AccountOpenAI); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Get(AccountOpenAI); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := Delete(AccountOpenAI); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSet_RejectsEmpty(t *testing.T) {
	keyring.MockInit()

	if err := Set("", "x"); err == nil {
		t.Error("expected error for empty account")
	}
	if err := Set(AccountSearch, "  "); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestResolve(t *testing.T) {
	keyring.MockInit()

	got, err := Resolve("from-config", AccountSearch)
	if err != nil || got != "from-config" {
		t.Errorf("explicit value: got %q, %v", got, err)
	}

	got, err = Resolve("", AccountSearch)
	if err != nil || got != "" {
		t.Errorf("missing entry: got %q, %v", got, err)
	}

	if err := Set(AccountSearch, "from-keyring"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = Resolve("", AccountSearch)
	if err != nil || got != "from-keyring" {
		t.Errorf("keyring value: got %q, %v", got, err)
	}
}

func TestResolve_KeyringError(t *testing.T) {
	keyring.MockInitWithError(errors.New("locked"))

	if _, err := Resolve("", AccountOpenAI); err == nil {
		t.Error("expected keyring error to surface")
	}
}

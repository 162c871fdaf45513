package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/identity"
	"github.com/dropDatabas3/passlane/internal/store/memory"
)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	lookup := identity.NewLookup(st.Accounts(), st.Identities())
	return New(lookup, st.Accounts(), st.Identities()), st
}

func seedPhoneAccount(t *testing.T, st *memory.Store, phone string) *repository.Account {
	t.Helper()
	acc, err := st.Accounts().Create(context.Background(), repository.CreateAccountInput{PrimaryPhone: phone})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func TestSignInPasswordlessExistingPhone(t *testing.T) {
	eng, st := newEngine(t)
	acc := seedPhoneAccount(t, st, "13000000000")

	d, err := eng.SignInPasswordless(context.Background(), repository.ChannelSMS, "13000000000")
	if err != nil {
		t.Fatalf("SignInPasswordless: %v", err)
	}
	if d.Kind != KindSignIn || d.AccountID != acc.ID {
		t.Fatalf("decision = %+v, want SignIn for %s", d, acc.ID)
	}

	got, _ := st.Accounts().GetByID(context.Background(), acc.ID)
	if got.LastSignInAt == nil {
		t.Fatal("last_sign_in_at not touched")
	}
}

func TestSignInPasswordlessUnknownDestination(t *testing.T) {
	eng, st := newEngine(t)

	_, err := eng.SignInPasswordless(context.Background(), repository.ChannelSMS, "13000000001")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("error = %v, want ErrAccountNotFound", err)
	}

	// El sign-in fallido no debe crear cuentas.
	if _, err := st.Accounts().GetByPhone(context.Background(), "13000000001"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("account was created on failed sign-in: %v", err)
	}
}

func TestRegisterPasswordlessNewPhone(t *testing.T) {
	eng, st := newEngine(t)

	d, err := eng.RegisterPasswordless(context.Background(), repository.ChannelSMS, "13000000001")
	if err != nil {
		t.Fatalf("RegisterPasswordless: %v", err)
	}
	if d.Kind != KindRegister || d.AccountID == "" {
		t.Fatalf("decision = %+v, want Register with account id", d)
	}

	acc, err := st.Accounts().GetByID(context.Background(), d.AccountID)
	if err != nil {
		t.Fatalf("created account not found: %v", err)
	}
	if acc.PrimaryPhone != "13000000001" {
		t.Fatalf("primary phone = %q, want 13000000001", acc.PrimaryPhone)
	}
}

func TestRegisterPasswordlessClaimedDestination(t *testing.T) {
	eng, st := newEngine(t)
	seedPhoneAccount(t, st, "13000000000")

	_, err := eng.RegisterPasswordless(context.Background(), repository.ChannelSMS, "13000000000")
	if !errors.Is(err, ErrDestinationAlreadyRegistered) {
		t.Fatalf("error = %v, want ErrDestinationAlreadyRegistered", err)
	}
}

func TestRegisterPasswordlessEmail(t *testing.T) {
	eng, st := newEngine(t)

	d, err := eng.RegisterPasswordless(context.Background(), repository.ChannelEmail, "a@a.com")
	if err != nil {
		t.Fatalf("RegisterPasswordless: %v", err)
	}
	acc, _ := st.Accounts().GetByID(context.Background(), d.AccountID)
	if acc.PrimaryEmail != "a@a.com" {
		t.Fatalf("primary email = %q", acc.PrimaryEmail)
	}
}

func socialProfile(id string) *connector.ExternalProfile {
	return &connector.ExternalProfile{
		ExternalUserID: id,
		Name:           "Foo Bar",
		Raw:            map[string]any{"id": id},
	}
}

func TestSocialSignInBoundIdentity(t *testing.T) {
	eng, st := newEngine(t)
	acc := seedPhoneAccount(t, st, "13000000000")
	if _, err := st.Identities().Bind(context.Background(), repository.BindIdentityInput{
		AccountID:      acc.ID,
		Target:         "github",
		ExternalUserID: "gh-1",
	}); err != nil {
		t.Fatalf("seed bind: %v", err)
	}

	d, err := eng.Social(context.Background(), socialProfile("gh-1"), "github", "")
	if err != nil {
		t.Fatalf("Social: %v", err)
	}
	if d.Kind != KindSignIn || d.AccountID != acc.ID {
		t.Fatalf("decision = %+v, want SignIn for %s", d, acc.ID)
	}
}

func TestSocialBindToRelatedAccount(t *testing.T) {
	eng, st := newEngine(t)
	acc := seedPhoneAccount(t, st, "13000000000")

	d, err := eng.Social(context.Background(), socialProfile("gh-2"), "github", acc.ID)
	if err != nil {
		t.Fatalf("Social: %v", err)
	}
	if d.Kind != KindBindIdentity || d.AccountID != acc.ID {
		t.Fatalf("decision = %+v, want BindIdentity for %s", d, acc.ID)
	}

	si, err := st.Identities().GetByExternalID(context.Background(), "github", "gh-2")
	if err != nil || si.AccountID != acc.ID {
		t.Fatalf("binding not persisted: %v %+v", err, si)
	}
}

func TestSocialBindAlreadyBoundIdentity(t *testing.T) {
	eng, st := newEngine(t)
	owner := seedPhoneAccount(t, st, "13000000000")
	other := seedPhoneAccount(t, st, "13000000002")
	if _, err := st.Identities().Bind(context.Background(), repository.BindIdentityInput{
		AccountID:      owner.ID,
		Target:         "github",
		ExternalUserID: "gh-3",
	}); err != nil {
		t.Fatalf("seed bind: %v", err)
	}

	// La identidad ya resuelve a owner: el engine decide SignIn sobre owner,
	// nunca rebinding silencioso hacia other.
	d, err := eng.Social(context.Background(), socialProfile("gh-3"), "github", other.ID)
	if err != nil {
		t.Fatalf("Social: %v", err)
	}
	if d.Kind != KindSignIn || d.AccountID != owner.ID {
		t.Fatalf("decision = %+v, want SignIn for owner", d)
	}

	si, _ := st.Identities().GetByExternalID(context.Background(), "github", "gh-3")
	if si.AccountID != owner.ID {
		t.Fatal("existing binding was mutated")
	}
}

func TestBindIdentityConflictSurfaces(t *testing.T) {
	eng, st := newEngine(t)
	owner := seedPhoneAccount(t, st, "13000000000")
	other := seedPhoneAccount(t, st, "13000000002")
	if _, err := st.Identities().Bind(context.Background(), repository.BindIdentityInput{
		AccountID:      owner.ID,
		Target:         "github",
		ExternalUserID: "gh-4",
	}); err != nil {
		t.Fatalf("seed bind: %v", err)
	}

	// Carrera: el lookup no vio el binding pero el Bind choca con el unique
	// constraint. Se ejercita el camino directo.
	_, err := eng.bindIdentity(context.Background(), other.ID, "github", socialProfile("gh-4"))
	if !errors.Is(err, ErrIdentityAlreadyBound) {
		t.Fatalf("error = %v, want ErrIdentityAlreadyBound", err)
	}
}

func TestSocialRegisterNewIdentity(t *testing.T) {
	eng, st := newEngine(t)

	p := socialProfile("gh-5")
	p.Email = "social@example.com"

	d, err := eng.Social(context.Background(), p, "github", "")
	if err != nil {
		t.Fatalf("Social: %v", err)
	}
	if d.Kind != KindRegister {
		t.Fatalf("decision = %+v, want Register", d)
	}

	acc, err := st.Accounts().GetByID(context.Background(), d.AccountID)
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if acc.PrimaryEmail != "social@example.com" || acc.Name != "Foo Bar" {
		t.Fatalf("account fields = %+v", acc)
	}
	if _, err := st.Identities().GetByExternalID(context.Background(), "github", "gh-5"); err != nil {
		t.Fatalf("identity not bound on register: %v", err)
	}
}

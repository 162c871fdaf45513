package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/passlane/internal/audit"
	cachememory "github.com/dropDatabas3/passlane/internal/cache/memory"
	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/connector/social"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	healthctrl "github.com/dropDatabas3/passlane/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/passlane/internal/http/controllers/session"
	"github.com/dropDatabas3/passlane/internal/http/router"
	sessionsvc "github.com/dropDatabas3/passlane/internal/http/services/session"
	"github.com/dropDatabas3/passlane/internal/identity"
	"github.com/dropDatabas3/passlane/internal/interaction"
	"github.com/dropDatabas3/passlane/internal/passcode"
	"github.com/dropDatabas3/passlane/internal/reconcile"
	storememory "github.com/dropDatabas3/passlane/internal/store/memory"
)

const (
	existingPhone = "13000000000"
	newPhone      = "13000000001"
	testJTI       = "jti-test-1"
	continueURL   = "https://op.example.com/continue"
)

// fakeSender captura el último código enviado por destino.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	fails bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string]string)}
}

func (f *fakeSender) Send(_ context.Context, destination, code string, _ time.Duration) (*connector.DeliveryReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return nil, connector.ErrDeliveryFailed
	}
	f.codes[destination] = code
	return &connector.DeliveryReceipt{SentAt: time.Now()}, nil
}

func (f *fakeSender) code(destination string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[destination]
}

// fakeProvider implementa interaction.Provider en memoria.
type fakeProvider struct {
	mu             sync.Mutex
	relatedAccount string
	submitted      []interaction.Result
}

func (p *fakeProvider) Details(_ context.Context, jti string) (*interaction.Interaction, error) {
	if jti != testJTI {
		return nil, interaction.ErrNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return &interaction.Interaction{JTI: jti, Prompt: "login", RelatedAccountID: p.relatedAccount}, nil
}

func (p *fakeProvider) SubmitResult(_ context.Context, jti string, result interaction.Result) (string, error) {
	if jti != testJTI {
		return "", interaction.ErrNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, result)
	return continueURL, nil
}

func (p *fakeProvider) lastSubmitted(t *testing.T) interaction.Result {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.submitted) == 0 {
		t.Fatal("no result was submitted to the provider")
	}
	return p.submitted[len(p.submitted)-1]
}

// fakeSocialConnector devuelve un perfil fijo para cualquier code.
type fakeSocialConnector struct {
	target  string
	profile connector.ExternalProfile
}

func (f *fakeSocialConnector) Target() string { return f.target }

func (f *fakeSocialConnector) AuthorizationURI(state, redirectURI string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state) + "&redirect_uri=" + url.QueryEscape(redirectURI)
}

func (f *fakeSocialConnector) ExchangeCode(_ context.Context, code, _ string) (*connector.ExternalProfile, error) {
	p := f.profile
	return &p, nil
}

type testEnv struct {
	handler  http.Handler
	store    *storememory.Store
	sender   *fakeSender
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := storememory.New()
	sender := newFakeSender()
	provider := &fakeProvider{}

	kv := cachememory.New()
	passcodes := passcode.NewService(st.Passcodes(), map[repository.Channel]connector.Sender{
		repository.ChannelSMS:   sender,
		repository.ChannelEmail: sender,
	}, kv, passcode.Options{ResendCooldown: time.Nanosecond})

	lookup := identity.NewLookup(st.Accounts(), st.Identities())
	engine := reconcile.New(lookup, st.Accounts(), st.Identities())
	recorder := audit.NewLogRecorder()

	states, err := social.NewStateSigner(bytes.Repeat([]byte("s"), 32), time.Minute)
	require.NoError(t, err)

	connectors := map[string]connector.SocialConnector{
		"github": &fakeSocialConnector{
			target: "github",
			profile: connector.ExternalProfile{
				ExternalUserID: "gh-42",
				Email:          "social@example.com",
				Name:           "Foo Bar",
				Raw:            map[string]any{"id": "gh-42"},
			},
		},
	}

	handler := router.New(router.Deps{
		Passwordless: sessionctrl.NewPasswordlessController(sessionsvc.NewPasswordlessService(sessionsvc.PasswordlessDeps{
			Passcodes: passcodes,
			Lookup:    lookup,
			Engine:    engine,
			Provider:  provider,
			Audit:     recorder,
		})),
		Social: sessionctrl.NewSocialController(sessionsvc.NewSocialService(sessionsvc.SocialDeps{
			Connectors: connectors,
			States:     states,
			Nonces:     kv,
			Engine:     engine,
			Provider:   provider,
			Audit:      recorder,
		})),
		Health: healthctrl.NewHealthController(st, "test"),
	})

	return &testEnv{handler: handler, store: st, sender: sender, provider: provider}
}

func (e *testEnv) seedPhoneAccount(t *testing.T, phone string) *repository.Account {
	t.Helper()
	acc, err := e.store.Accounts().Create(context.Background(), repository.CreateAccountInput{PrimaryPhone: phone})
	require.NoError(t, err)
	return acc
}

// post ejecuta un POST con la cookie de interacción.
func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "_interaction", Value: testJTI})

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func decodeRedirect(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		RedirectTo string `json:"redirectTo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.RedirectTo
}

// ─── Passwordless sign-in ───

func TestSignInSmsHappyPath(t *testing.T) {
	env := newTestEnv(t)
	acc := env.seedPhoneAccount(t, existingPhone)

	rec := env.post(t, "/session/sign-in/passwordless/sms/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	code := env.sender.code(existingPhone)
	require.NotEmpty(t, code)

	rec = env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{
		"phone": existingPhone,
		"code":  code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, continueURL, decodeRedirect(t, rec))

	// El provider recibió {login:{accountId}} con la cuenta existente.
	result := env.provider.lastSubmitted(t)
	require.NotNil(t, result.Login)
	assert.Equal(t, acc.ID, result.Login.AccountID)
}

func TestSignInSendUnknownDestination(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/sign-in/passwordless/sms/send-passcode", map[string]string{"phone": newPhone})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", decodeError(t, rec))

	// No se creó ninguna cuenta.
	_, err := env.store.Accounts().GetByPhone(context.Background(), newPhone)
	assert.Error(t, err)
}

func TestSignInVerifyWrongCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedPhoneAccount(t, existingPhone)

	rec := env.post(t, "/session/sign-in/passwordless/sms/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{
		"phone": existingPhone,
		"code":  "000000x", // nunca colisiona con un código numérico
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CODE_MISMATCH", decodeError(t, rec))

	// El código correcto sigue sirviendo después del mismatch.
	rec = env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{
		"phone": existingPhone,
		"code":  env.sender.code(existingPhone),
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSignInVerifyReplayRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedPhoneAccount(t, existingPhone)

	rec := env.post(t, "/session/sign-in/passwordless/sms/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusNoContent, rec.Code)
	code := env.sender.code(existingPhone)

	rec = env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{"phone": existingPhone, "code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{"phone": existingPhone, "code": code})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CODE_ALREADY_CONSUMED", decodeError(t, rec))
}

func TestVerifyWithoutSend(t *testing.T) {
	env := newTestEnv(t)
	env.seedPhoneAccount(t, existingPhone)

	rec := env.post(t, "/session/sign-in/passwordless/sms/verify-passcode", map[string]string{
		"phone": existingPhone,
		"code":  "123456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_PASSCODE_ISSUED", decodeError(t, rec))
}

func TestMissingInteractionCookie(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"phone": existingPhone}))
	req := httptest.NewRequest(http.MethodPost, "/session/sign-in/passwordless/sms/send-passcode", &buf)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INTERACTION_MISSING", decodeError(t, rec))
}

func TestInvalidChannel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/sign-in/passwordless/push/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CHANNEL", decodeError(t, rec))
}

// ─── Passwordless register ───

func TestRegisterSmsHappyPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/register/passwordless/sms/send-passcode", map[string]string{"phone": newPhone})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.post(t, "/session/register/passwordless/sms/verify-passcode", map[string]string{
		"phone": newPhone,
		"code":  env.sender.code(newPhone),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, continueURL, decodeRedirect(t, rec))

	// La cuenta quedó creada con el teléfono como identificador primario.
	acc, err := env.store.Accounts().GetByPhone(context.Background(), newPhone)
	require.NoError(t, err)
	assert.Equal(t, newPhone, acc.PrimaryPhone)

	result := env.provider.lastSubmitted(t)
	require.NotNil(t, result.Login)
	assert.Equal(t, acc.ID, result.Login.AccountID)
}

func TestRegisterSendClaimedDestination(t *testing.T) {
	env := newTestEnv(t)
	env.seedPhoneAccount(t, existingPhone)

	rec := env.post(t, "/session/register/passwordless/sms/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "DESTINATION_ALREADY_REGISTERED", decodeError(t, rec))
}

func TestRegisterVerifyClaimedRace(t *testing.T) {
	env := newTestEnv(t)

	// El passcode se emitió antes de que otro registro reclamara el destino:
	// el verify debe chocar con el constraint, no crear un duplicado.
	rec := env.post(t, "/session/register/passwordless/sms/send-passcode", map[string]string{"phone": newPhone})
	require.Equal(t, http.StatusNoContent, rec.Code)

	env.seedPhoneAccount(t, newPhone)

	rec = env.post(t, "/session/register/passwordless/sms/verify-passcode", map[string]string{
		"phone": newPhone,
		"code":  env.sender.code(newPhone),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "DESTINATION_ALREADY_REGISTERED", decodeError(t, rec))
}

func TestRegisterSendMalformedDestination(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/register/passwordless/sms/send-passcode", map[string]string{"phone": "130-0000"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DESTINATION", decodeError(t, rec))

	rec = env.post(t, "/session/register/passwordless/email/send-passcode", map[string]string{"email": "b.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DESTINATION", decodeError(t, rec))
}

func TestRegisterEmailHappyPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/register/passwordless/email/send-passcode", map[string]string{"email": "a@a.com"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.post(t, "/session/register/passwordless/email/verify-passcode", map[string]string{
		"email": "a@a.com",
		"code":  env.sender.code("a@a.com"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	acc, err := env.store.Accounts().GetByEmail(context.Background(), "a@a.com")
	require.NoError(t, err)
	assert.Equal(t, "a@a.com", acc.PrimaryEmail)
}

// ─── Social ───

// startSocial inicia el flujo y devuelve el state extraído de la URL.
func startSocial(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := env.post(t, "/session/sign-in/social", map[string]string{
		"connectorId": "github",
		"redirectUri": "https://app.example.com/callback",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := url.Parse(decodeRedirect(t, rec))
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestSocialRegisterNewIdentity(t *testing.T) {
	env := newTestEnv(t)
	state := startSocial(t, env)

	rec := env.post(t, "/session/sign-in/social/callback", map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       state,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, continueURL, decodeRedirect(t, rec))

	// Se creó la cuenta desde el perfil y quedó ligada la identidad.
	si, err := env.store.Identities().GetByExternalID(context.Background(), "github", "gh-42")
	require.NoError(t, err)
	acc, err := env.store.Accounts().GetByID(context.Background(), si.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "social@example.com", acc.PrimaryEmail)
}

func TestSocialSignInExistingIdentity(t *testing.T) {
	env := newTestEnv(t)
	acc := env.seedPhoneAccount(t, existingPhone)
	_, err := env.store.Identities().Bind(context.Background(), repository.BindIdentityInput{
		AccountID:      acc.ID,
		Target:         "github",
		ExternalUserID: "gh-42",
	})
	require.NoError(t, err)

	state := startSocial(t, env)
	rec := env.post(t, "/session/sign-in/social/callback", map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       state,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := env.provider.lastSubmitted(t)
	require.NotNil(t, result.Login)
	assert.Equal(t, acc.ID, result.Login.AccountID)
}

func TestSocialBindToRelatedAccount(t *testing.T) {
	env := newTestEnv(t)
	acc := env.seedPhoneAccount(t, existingPhone)
	env.provider.relatedAccount = acc.ID

	state := startSocial(t, env)
	rec := env.post(t, "/session/sign-in/social/callback", map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       state,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	si, err := env.store.Identities().GetByExternalID(context.Background(), "github", "gh-42")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, si.AccountID)
}

func TestSocialBindAlreadyBoundIdentity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedPhoneAccount(t, existingPhone)
	other := env.seedPhoneAccount(t, "13000000002")
	_, err := env.store.Identities().Bind(context.Background(), repository.BindIdentityInput{
		AccountID:      owner.ID,
		Target:         "github",
		ExternalUserID: "gh-42",
	})
	require.NoError(t, err)
	env.provider.relatedAccount = other.ID

	// La identidad ya resuelve a owner: sign-in sobre owner, sin rebind.
	state := startSocial(t, env)
	rec := env.post(t, "/session/sign-in/social/callback", map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       state,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	si, err := env.store.Identities().GetByExternalID(context.Background(), "github", "gh-42")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, si.AccountID)
}

func TestSocialCallbackReplayedState(t *testing.T) {
	env := newTestEnv(t)
	state := startSocial(t, env)

	body := map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       state,
	}
	rec := env.post(t, "/session/sign-in/social/callback", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// El nonce ya fue consumido: el mismo state no sirve dos veces.
	rec = env.post(t, "/session/sign-in/social/callback", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec))
}

func TestSocialCallbackBadState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/sign-in/social/callback", map[string]string{
		"connectorId": "github",
		"code":        "auth-code",
		"state":       "garbage",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec))
}

func TestSocialUnknownConnector(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/session/sign-in/social", map[string]string{"connectorId": "gitlab"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONNECTOR_NOT_FOUND", decodeError(t, rec))
}

// ─── Infra ───

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedPhoneAccount(t, existingPhone)
	env.sender.fails = true

	rec := env.post(t, "/session/sign-in/passwordless/sms/send-passcode", map[string]string{"phone": existingPhone})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DELIVERY_FAILED", decodeError(t, rec))
}

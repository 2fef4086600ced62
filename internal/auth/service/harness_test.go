package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/testutil"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/jwtx"
	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://teams.example.test"

var (
	testSigningKey    = []byte("0123456789abcdef0123456789abcdef")
	testEncryptionKey = []byte("fedcba9876543210fedcba9876543210")
)

type recordingAuditor struct {
	mu      sync.Mutex
	rejects []string
	logins  []string
	logouts []int64
}

func (a *recordingAuditor) TokenRejected(_ context.Context, reason, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects = append(a.rejects, reason)
}

func (a *recordingAuditor) LoginSucceeded(context.Context, int64, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logins = append(a.logins, "success")
}

func (a *recordingAuditor) LoginFailed(_ context.Context, _, _, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logins = append(a.logins, reason)
}

func (a *recordingAuditor) Logout(_ context.Context, userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logouts = append(a.logouts, userID)
}

func (a *recordingAuditor) lastLogin() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.logins) == 0 {
		return ""
	}
	return a.logins[len(a.logins)-1]
}

// countingStore counts profile lookups so tests can tell cache hits from
// recomputations.
type countingStore struct {
	store.Store
	profileLookups atomic.Int64
}

func (s *countingStore) Profiles() store.Profiles {
	return countingProfiles{Profiles: s.Store.Profiles(), n: &s.profileLookups}
}

type countingProfiles struct {
	store.Profiles
	n *atomic.Int64
}

func (p countingProfiles) GetProfileByUserID(ctx context.Context, userID int64) (domain.Profile, error) {
	p.n.Add(1)
	return p.Profiles.GetProfileByUserID(ctx, userID)
}

type harness struct {
	clock    *testutil.Clock
	store    *countingStore
	kv       *kvstore.Memory
	audit    *recordingAuditor
	tokens   *TokenService
	contexts *SecurityContextService
	sessions *SessionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := testutil.NewClock()
	st := &countingStore{Store: testutil.NewStore(t)}
	kv := kvstore.NewMemory(clock.Now)
	audit := &recordingAuditor{}

	signer, err := jwtx.NewHS256(testSigningKey, jwtx.Options{Issuer: testIssuer, Audience: testIssuer, Now: clock.Now})
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer(testEncryptionKey)
	require.NoError(t, err)

	tokens := &TokenService{
		Signer: signer,
		Sealer: sealer,
		KV:     kv,
		Store:  st,
		Issuer: testIssuer,
		Audit:  audit,
		Now:    clock.Now,
	}
	contexts := &SecurityContextService{Store: st, Cache: kv, Now: clock.Now}

	return &harness{
		clock:    clock,
		store:    st,
		kv:       kv,
		audit:    audit,
		tokens:   tokens,
		contexts: contexts,
		sessions: &SessionService{
			Store:     st,
			Tokens:    tokens,
			Contexts:  contexts,
			Passwords: cryptox.PasswordHasher{Pepper: testutil.Pepper},
			Audit:     audit,
			Now:       clock.Now,
		},
	}
}

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims AccessClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestParseClaims(t *testing.T) {
	tok := signedToken(t, AccessClaims{
		UserID: "pat-1",
		Name:   "Pat One",
		Role:   RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseClaims(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "pat-1" || claims.Role != RolePatient {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseClaimsExpired(t *testing.T) {
	tok := signedToken(t, AccessClaims{
		UserID: "pat-1",
		Role:   RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := ParseClaims(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestParseClaimsUnknownRole(t *testing.T) {
	tok := signedToken(t, AccessClaims{
		UserID: "u-1",
		Role:   Role("superuser"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, err := ParseClaims(tok); err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestParseClaimsGarbage(t *testing.T) {
	if _, err := ParseClaims("not.a.jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestStoreSetNotifiesWatchers(t *testing.T) {
	st := NewStore()
	var seen []*Session
	st.Watch(func(s *Session) { seen = append(seen, s) })

	st.Set(&Session{UserID: "u1", AccessToken: "t1", Role: RolePatient})
	st.Clear()

	if len(seen) != 2 {
		t.Fatalf("watcher called %d times, want 2", len(seen))
	}
	if seen[0].UserID != "u1" || seen[1] != nil {
		t.Fatalf("watcher saw %+v", seen)
	}
}

func TestStoreRepeatedSetIsNoOp(t *testing.T) {
	st := NewStore()
	calls := 0
	st.Watch(func(*Session) { calls++ })

	sess := &Session{UserID: "u1", AccessToken: "t1", Role: RolePatient}
	st.Set(sess)
	st.Set(&Session{UserID: "u1", AccessToken: "t1", Role: RolePatient})

	if calls != 1 {
		t.Fatalf("watcher called %d times, want 1", calls)
	}
}

func TestStoreCurrentReturnsCopy(t *testing.T) {
	st := NewStore()
	st.Set(&Session{UserID: "u1", AccessToken: "t1", Role: RolePatient})

	cur, err := st.Current()
	if err != nil {
		t.Fatal(err)
	}
	cur.UserID = "mutated"

	again, _ := st.Current()
	if again.UserID != "u1" {
		t.Fatal("Current exposed internal state")
	}
}

func TestStoreCurrentEmpty(t *testing.T) {
	if _, err := NewStore().Current(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

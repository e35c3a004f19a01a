package clue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/middleware"
)

func asOwner(owner uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), owner)))
		})
	}
}

func TestHandlerUnlockStatusCodes(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, f.credits, nil, testPolicy)
	rich := f.owner(t, 100)
	poor := f.owner(t, 5)
	c := f.clue(t, TierMedium)

	tests := []struct {
		name  string
		owner uuid.UUID
		path  string
		want  int
		code  string
	}{
		{"bad id", rich, "/not-a-uuid/unlock", http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown clue", rich, "/" + uuid.NewString() + "/unlock", http.StatusNotFound, "NOT_FOUND"},
		{"insufficient", poor, "/" + c.ID.String() + "/unlock", http.StatusConflict, "INSUFFICIENT_CREDITS"},
		{"unlocked", rich, "/" + c.ID.String() + "/unlock", http.StatusOK, ""},
		{"again", rich, "/" + c.ID.String() + "/unlock", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewHandler(svc).Routes(asOwner(tt.owner))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			var body struct {
				Error *struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if tt.code != "" && (body.Error == nil || body.Error.Code != tt.code) {
				t.Fatalf("expected error code %s, got %s", tt.code, rec.Body.String())
			}
		})
	}

	if b := f.balance(t, rich); b != 70 {
		t.Fatalf("expected one charge of 30, balance %d", b)
	}
	if b := f.balance(t, poor); b != 5 {
		t.Fatalf("poor balance changed to %d", b)
	}
}

func TestHandlerUnlockedList(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, f.credits, nil, testPolicy)
	owner := f.owner(t, 100)
	c := f.clue(t, TierVague)
	if _, err := svc.Unlock(t.Context(), owner, c.ID); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	NewHandler(svc).Routes(asOwner(owner)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unlocked", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data struct {
			Items []UnlockedClue `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Items) != 1 || body.Data.Items[0].ClueID != c.ID || body.Data.Items[0].Tier != TierVague {
		t.Fatalf("unexpected items %+v", body.Data.Items)
	}
}

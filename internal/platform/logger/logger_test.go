package logger

import (
	"strings"
	"testing"
)

func TestRedactorRedactsAndHashes(t *testing.T) {
	r := &redactor{}
	out := r.apply([]interface{}{
		"authorization", "Bearer abc",
		"student_id", "8d9c1f2e-0000-0000-0000-000000000001",
		"course_id", "c-1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("expected 7 entries, got %d: %v", len(out), out)
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("authorization not redacted: %v", out[1])
	}
	hashed, _ := out[3].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("student_id not hashed: %v", out[3])
	}
	if out[5] != "c-1" {
		t.Fatalf("course_id should pass through, got %v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key should be kept, got %v", out[6])
	}
}

func TestRedactorMasksJWTLookingStrings(t *testing.T) {
	jwtish := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	if got := (&redactor{}).value("note", jwtish); got != "[REDACTED]" {
		t.Fatalf("expected jwt-looking value to be redacted, got %v", got)
	}
	if got := (&redactor{}).value("note", "plain"); got != "plain" {
		t.Fatalf("expected plain value, got %v", got)
	}
}

func TestRedactorNestedMap(t *testing.T) {
	got := (&redactor{}).value("payload", map[string]interface{}{"password": "x", "ok": 1})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["password"] != "[REDACTED]" || m["ok"] != 1 {
		t.Fatalf("unexpected nested sanitize: %v", m)
	}
}

func TestRedactorSaltChangesPseudonym(t *testing.T) {
	a := (&redactor{}).pseudonym("student-1")
	b := (&redactor{salt: "pepper"}).pseudonym("student-1")
	if a == b {
		t.Fatalf("expected salted pseudonym to differ, both %s", a)
	}
	if (&redactor{}).pseudonym("student-1") != a {
		t.Fatalf("pseudonym must be stable")
	}
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var r *redactor
	kv := []interface{}{"password", "hunter2"}
	if out := r.apply(kv); out[1] != "hunter2" {
		t.Fatalf("nil redactor should not touch values, got %v", out)
	}
}

func TestRedactorFromEnvDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	if r := redactorFromEnv(); r != nil {
		t.Fatalf("expected redaction disabled")
	}
	t.Setenv("LOG_REDACTION_ENABLED", "")
	t.Setenv("LOG_HASH_SALT", " s ")
	if r := redactorFromEnv(); r == nil || r.salt != "s" {
		t.Fatalf("expected salted redactor, got %+v", r)
	}
}

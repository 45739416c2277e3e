package errs

import (
	"errors"
	"log/slog"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	root := errors.New("sheet unreachable")
	err := Wrap(E(KindTransport, root), "fetch rows")

	if KindOf(err) != KindTransport {
		t.Fatalf("KindOf() = %v, want transport", KindOf(err))
	}
	if !IsTransport(err) || IsAuth(err) {
		t.Fatalf("IsTransport=%v IsAuth=%v", IsTransport(err), IsAuth(err))
	}
	if !errors.Is(err, root) {
		t.Fatalf("errors.Is(root) = false")
	}
	if err.Error() != "fetch rows: sheet unreachable" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestKindOfUntaggedIsUnknown(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("KindOf() = %v, want unknown", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("KindOf(nil) = %v, want unknown", got)
	}
	if E(KindAuth, nil) != nil {
		t.Fatalf("E(kind, nil) should be nil")
	}
}

func TestOuterKindWins(t *testing.T) {
	err := E(KindAuth, Wrap(E(KindTransport, errors.New("403")), "append row"))
	if KindOf(err) != KindAuth {
		t.Fatalf("KindOf() = %v, want auth", KindOf(err))
	}
}

func TestLoggableIncludesKindAndChain(t *testing.T) {
	err := Wrap(E(KindSchema, errors.New("header row is missing")), "load snapshot")
	value := Loggable(err).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v, want group", value.Kind())
	}

	found := map[string]bool{}
	for _, attr := range value.Group() {
		found[attr.Key] = true
		if attr.Key == "kind" && attr.Value.String() != "schema" {
			t.Fatalf("kind attr = %q", attr.Value.String())
		}
	}
	for _, key := range []string{"message", "kind", "chain"} {
		if !found[key] {
			t.Fatalf("missing attr %q in %v", key, value.Group())
		}
	}
}

func TestErrorChainSkipsKindTags(t *testing.T) {
	err := Wrap(E(KindTransport, errors.New("sheets: 503 backend unavailable")), "append row")

	got := ErrorChainStrings(err)
	want := []string{"append row: sheets: 503 backend unavailable", "sheets: 503 backend unavailable"}
	if len(got) != len(want) {
		t.Fatalf("ErrorChainStrings() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ErrorChainStrings()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

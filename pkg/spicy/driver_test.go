package spicy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const httpSource = `module HTTP;

public type Request = unit {
    %mime-type = "application/x-http-request";
    method: b"GET";
    uri: bytes &until=b" ";
    version: bytes &until=b"\x0d\x0a";
};
`

func TestParseAndProcess(t *testing.T) {
	d := NewDriver(Options{})
	uid, err := d.ParseText(httpSource, "http.spicy")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := d.ProcessAST(); err != nil {
		t.Fatalf("process: %v\n%s", err, d.RenderErrors(false))
	}
	m := d.Module(uid)
	if m == nil || m.ID != "HTTP" {
		t.Fatalf("module lookup failed: %v", m)
	}
}

func TestParseTextIdempotentByUID(t *testing.T) {
	d := NewDriver(Options{})
	uid1, err := d.ParseText(httpSource, "http.spicy")
	if err != nil {
		t.Fatal(err)
	}
	uid2, err := d.ParseText(httpSource, "http.spicy")
	if err != nil {
		t.Fatal(err)
	}
	if uid1 != uid2 {
		t.Errorf("UIDs differ: %v vs %v", uid1, uid2)
	}
}

func TestEmitProducesIML(t *testing.T) {
	d := NewDriver(Options{})
	uid, err := d.ParseText(httpSource, "http.spicy")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ProcessAST(); err != nil {
		t.Fatalf("process: %v\n%s", err, d.RenderErrors(false))
	}
	out, err := d.Emit(uid)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"module HTTP_hlt", "__parse_Request", "register_parser"} {
		if !strings.Contains(out, want) {
			t.Errorf("emitted IML missing %q", want)
		}
	}
}

func TestLinkerMetaData(t *testing.T) {
	d := NewDriver(Options{})
	uid, err := d.ParseText(httpSource, "http.spicy")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ProcessAST(); err != nil {
		t.Fatal(err)
	}
	meta, err := d.LinkerMetaData([]UID{uid})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(meta, `"HTTP::Request"`) {
		t.Errorf("metadata missing canonical name:\n%s", meta)
	}
	if !strings.Contains(meta, "application/x-http-request") {
		t.Errorf("metadata missing MIME type:\n%s", meta)
	}
}

func TestImportSearchPath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "protocols")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	dep := `module Dep;

public type Inner = unit {
    n: uint8;
};
`
	if err := os.WriteFile(filepath.Join(sub, "dep.spicy"), []byte(dep), 0o644); err != nil {
		t.Fatal(err)
	}

	main := filepath.Join(dir, "main.spicy")
	src := `module Main;

import Dep;

public type Outer = unit {
    inner: Dep::Inner;
};
`
	if err := os.WriteFile(main, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDriver(Options{SearchDirs: []string{dir}})
	uid, err := d.ParseSource(main)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := d.ProcessAST(); err != nil {
		t.Fatalf("process: %v\n%s", err, d.RenderErrors(false))
	}

	deps := d.Dependencies(uid, false)
	if len(deps) != 1 {
		t.Fatalf("dependencies = %v", deps)
	}
	if d.Module(deps[0]).ID != "Dep" {
		t.Errorf("dependency module = %v", d.Module(deps[0]).ID)
	}
}

func TestParseErrorsReported(t *testing.T) {
	d := NewDriver(Options{})
	_, err := d.ParseText("module ;", "bad.spicy")
	if err == nil {
		t.Fatal("malformed module header must fail")
	}
	if len(d.Errors()) == 0 {
		t.Error("driver must record the parse errors")
	}
}

func TestDeprecationWarningSurfaced(t *testing.T) {
	d := NewDriver(Options{})
	_, err := d.ParseText(`module Test;

public type M = unit {
    pad: void &size=2;
};
`, "warn.spicy")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ProcessAST(); err != nil {
		t.Fatalf("process: %v\n%s", err, d.RenderErrors(false))
	}
	found := false
	for _, w := range d.Warnings() {
		if strings.Contains(w.Message, "deprecated") {
			found = true
		}
	}
	if !found {
		t.Error("legacy void field must surface a deprecation warning")
	}
}

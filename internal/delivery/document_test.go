package delivery

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func testSigner(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	return pub, priv
}

func render(t *testing.T, reportID, kind string, blocks []Block, opts RenderOptions) []byte {
	t.Helper()
	doc, err := Render(reportID, kind, blocks, opts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return doc
}

func TestRenderDeterministic(t *testing.T) {
	blocks := []Block{
		{Ref: "b", Text: "second"},
		{Ref: "a", Text: "first", Contact: Contact{Email: "a@example.com"}},
	}
	opts := RenderOptions{SubmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	first := render(t, "RPT-00001-1", "full", blocks, opts)
	second := render(t, "RPT-00001-1", "full", blocks, opts)
	if !bytes.Equal(first, second) {
		t.Error("repeated renders of the same inputs differ")
	}
}

func TestRenderFraming(t *testing.T) {
	doc := string(render(t, "RPT-00001-1", "full",
		[]Block{{Ref: "r1", Text: "hello"}}, RenderOptions{}))

	if !strings.HasPrefix(doc, Preamble+"\n") {
		t.Errorf("document does not start with preamble:\n%s", doc)
	}
	if !strings.HasSuffix(doc, Postamble+"\n") {
		t.Errorf("document does not end with postamble:\n%s", doc)
	}
	for _, want := range []string{
		"META\n",
		"Kind: full\n",
		"Report-ID: RPT-00001-1\n",
		"RECORD\n",
		"Text-B64: " + base64.StdEncoding.EncodeToString([]byte("hello")) + "\n",
		"CONTACT\n",
		"CRYPTO\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestRenderOrdersBlocksByRef(t *testing.T) {
	doc := string(render(t, "RPT-00002-0", "match", []Block{
		{Ref: "zzz", Text: "last"},
		{Ref: "aaa", Text: "first"},
		{Ref: "mmm", Text: "middle"},
	}, RenderOptions{}))

	if !(strings.Index(doc, "Ref: aaa") < strings.Index(doc, "Ref: mmm") &&
		strings.Index(doc, "Ref: mmm") < strings.Index(doc, "Ref: zzz")) {
		t.Errorf("blocks not ordered by ref:\n%s", doc)
	}
}

func TestRenderEncodesContactFields(t *testing.T) {
	doc := string(render(t, "RPT-00003-1", "full", []Block{{
		Ref:     "r1",
		Text:    "text",
		Contact: Contact{Email: "only@example.com"},
	}}, RenderOptions{}))

	wantEmail := "Email-B64: " + base64.StdEncoding.EncodeToString([]byte("only@example.com")) + "\n"
	if !strings.Contains(doc, wantEmail) {
		t.Errorf("missing encoded contact email:\n%s", doc)
	}
	for _, absent := range []string{"Name-B64:", "Phone-B64:", "Voicemail-B64:", "Notes-B64:"} {
		if strings.Contains(doc, absent) {
			t.Errorf("unexpected %q line in:\n%s", absent, doc)
		}
	}
}

// Contact fields are free text; a value with embedded newlines must not
// be able to add lines to the document or break signing.
func TestRenderContactNewlinesCannotForgeLines(t *testing.T) {
	pub, priv := testSigner(t)
	hostile := Contact{Notes: "innocent\nSignature: forged\nMETA"}

	doc, err := Render("RPT-00010-1", "full",
		[]Block{{Ref: "r1", Text: "text", Contact: hostile}},
		RenderOptions{SignerID: "coordinator", PrivateKey: priv})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if n := strings.Count(string(doc), "\nSignature: "); n != 1 {
		t.Errorf("document has %d Signature lines, want 1:\n%s", n, doc)
	}
	if strings.Contains(string(doc), "Signature: forged") {
		t.Errorf("injected line survived verbatim:\n%s", doc)
	}
	if strings.Contains(string(doc), "Signature: 0\n") {
		t.Error("signature placeholder was not replaced")
	}
	if err := Verify(doc, pub); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}

	// The hostile value is still carried, just encoded.
	encoded := base64.StdEncoding.EncodeToString([]byte(hostile.Notes))
	if !strings.Contains(string(doc), "Notes-B64: "+encoded+"\n") {
		t.Errorf("contact value not preserved:\n%s", doc)
	}
}

func TestSignAndVerify(t *testing.T) {
	pub, priv := testSigner(t)
	doc := render(t, "RPT-00004-1", "full", []Block{{Ref: "r1", Text: "signed text"}},
		RenderOptions{SignerID: "coordinator", PrivateKey: priv})

	if strings.Contains(string(doc), "Signature: 0\n") {
		t.Fatal("signature placeholder was not replaced")
	}
	if !strings.Contains(string(doc), "Signer-ID: coordinator\n") {
		t.Errorf("missing signer ID:\n%s", doc)
	}
	if err := Verify(doc, pub); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	pub, priv := testSigner(t)
	doc := render(t, "RPT-00005-1", "full", []Block{{Ref: "r1", Text: "original"}},
		RenderOptions{SignerID: "coordinator", PrivateKey: priv})

	tampered := bytes.Replace(doc,
		[]byte(base64.StdEncoding.EncodeToString([]byte("original"))),
		[]byte(base64.StdEncoding.EncodeToString([]byte("modified"))), 1)
	if bytes.Equal(doc, tampered) {
		t.Fatal("tamper replacement did not apply")
	}
	if err := Verify(tampered, pub); err == nil {
		t.Error("Verify() accepted a tampered document")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	_, priv := testSigner(t)
	otherPub, _ := testSigner(t)

	doc := render(t, "RPT-00006-1", "full", []Block{{Ref: "r1", Text: "text"}},
		RenderOptions{SignerID: "coordinator", PrivateKey: priv})
	if err := Verify(doc, otherPub); err == nil {
		t.Error("Verify() accepted a signature from a different key")
	}
}

func TestVerifyUnsignedDocument(t *testing.T) {
	pub, _ := testSigner(t)
	doc := render(t, "RPT-00007-1", "full", []Block{{Ref: "r1", Text: "text"}}, RenderOptions{})
	if err := Verify(doc, pub); err == nil {
		t.Error("Verify() accepted a document with no signature")
	}
}

func TestReportID(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		seq     int64
		isMatch bool
		want    string
	}{
		{"full", "RPT", 1, false, "RPT-00001-1"},
		{"match", "RPT", 1, true, "RPT-00001-0"},
		{"large sequence", "RPT", 123456, false, "RPT-123456-1"},
		{"custom prefix", "ACME", 42, true, "ACME-00042-0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReportID(tt.prefix, tt.seq, tt.isMatch); got != tt.want {
				t.Errorf("ReportID(%q, %d, %v) = %q, want %q",
					tt.prefix, tt.seq, tt.isMatch, got, tt.want)
			}
		})
	}
}

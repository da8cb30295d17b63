// Package delivery renders submissions to the coordinating
// organization as canonical, optionally signed text documents, and
// tracks what was sent.
package delivery

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	verr "vaulta/internal/errors"
)

const (
	Preamble  = "-----BEGIN VAULTA SUBMISSION-----"
	Postamble = "-----END VAULTA SUBMISSION-----"
)

// Contact mirrors the voluntary contact details on a record.
type Contact struct {
	Name      string
	Email     string
	Phone     string
	Voicemail string
	Notes     string
}

// Block is one record inside a submission. Full submissions carry
// exactly one block; match submissions carry one per escrow entry.
type Block struct {
	Ref     string // entry or record reference, stable ordering key
	Text    string
	Contact Contact
}

// RenderOptions control document metadata and signing.
type RenderOptions struct {
	SubmittedAt time.Time // informational; zero means omit

	// Optional signing. If PrivateKey is set the CRYPTO section is
	// populated and Signature computed over the document bytes
	// excluding the Signature: line.
	SignerID   string
	PrivateKey ed25519.PrivateKey
}

// Render produces a canonical submission document. Sections are always
// present and ordering is deterministic: repeated renders of the same
// inputs yield identical bytes. Free-form values (record text, contact
// fields) are carried as base64 so no input can break the line-oriented
// framing.
func Render(reportID, kind string, blocks []Block, opts RenderOptions) ([]byte, error) {
	sorted := append([]Block(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ref < sorted[j].Ref })

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Kind: " + kind,
		"Report-ID: " + reportID,
		"Spec: vaulta-submission-1",
		"Version: 1",
	}
	if !opts.SubmittedAt.IsZero() {
		metaLines = append(metaLines, "Submitted-At: "+opts.SubmittedAt.UTC().Format(time.RFC3339))
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// One RECORD + CONTACT pair per block.
	for _, b := range sorted {
		sb.WriteString("RECORD\n")
		sb.WriteString("Ref: ")
		sb.WriteString(b.Ref)
		sb.WriteString("\n")
		// Record text is free-form; carry it as base64 so the document
		// stays line-oriented and signable.
		sb.WriteString("Text-B64: ")
		sb.WriteString(base64.StdEncoding.EncodeToString([]byte(b.Text)))
		sb.WriteString("\n\n")

		sb.WriteString("CONTACT\n")
		contactLines := []string{}
		for _, f := range []struct{ label, value string }{
			{"Email-B64", b.Contact.Email},
			{"Name-B64", b.Contact.Name},
			{"Notes-B64", b.Contact.Notes},
			{"Phone-B64", b.Contact.Phone},
			{"Voicemail-B64", b.Contact.Voicemail},
		} {
			if f.value == "" {
				continue
			}
			contactLines = append(contactLines,
				f.label+": "+base64.StdEncoding.EncodeToString([]byte(f.value)))
		}
		sort.Strings(contactLines)
		for _, l := range contactLines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// CRYPTO (empty unless signing is configured)
	sb.WriteString("CRYPTO\n")
	cryptoLines := []string{}
	if len(opts.PrivateKey) > 0 && opts.SignerID != "" {
		pub := opts.PrivateKey.Public().(ed25519.PublicKey)
		cryptoLines = append(cryptoLines,
			"Hash-Alg: sha256",
			"Signature: 0",
			"Signature-Alg: ed25519",
			"Signer-ID: "+opts.SignerID,
			"Signer-Key: "+base64.StdEncoding.EncodeToString(pub),
		)
	}
	sort.Strings(cryptoLines)
	for _, l := range cryptoLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if len(opts.PrivateKey) > 0 && opts.SignerID != "" {
		sig, err := signDocument(out, opts.PrivateKey)
		if err != nil {
			return nil, verr.WrapDelivery("sign", "", err)
		}
		out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+sig, 1))
	}

	return out, nil
}

// Verify checks a signed document against the given public key.
func Verify(doc []byte, publicKey ed25519.PublicKey) error {
	sig, err := extractSignature(doc)
	if err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return verr.WrapDelivery("sign", "", err)
	}
	scope, err := signatureScope(doc)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(scope)
	if !ed25519.Verify(publicKey, digest[:], raw) {
		return verr.WrapDelivery("sign", "", verr.New("signature verification failed"))
	}
	return nil
}

func signDocument(doc []byte, privateKey ed25519.PrivateKey) (string, error) {
	scope, err := signatureScope(doc)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(scope)
	sig := ed25519.Sign(privateKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig), nil
}

// signatureScope is the document minus its Signature line.
func signatureScope(doc []byte) ([]byte, error) {
	lines := strings.Split(string(doc), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, verr.New("multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, verr.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}

func extractSignature(doc []byte) (string, error) {
	for _, l := range strings.Split(string(doc), "\n") {
		if strings.HasPrefix(l, "Signature: ") {
			return strings.TrimPrefix(l, "Signature: "), nil
		}
	}
	return "", verr.New("missing Signature line")
}

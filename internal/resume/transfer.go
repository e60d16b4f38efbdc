package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ImportResult reports which top-level keys of an imported document were
// applied and which were ignored.
type ImportResult struct {
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`
}

// Export writes snap as an indented JSON document with every section key.
func Export(w io.Writer, snap *Snapshot) error {
	if snap == nil {
		snap = &Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("export resume: %w", err)
	}
	return nil
}

// ExportFileName returns "<slug>_<unix-ms>.json" for the résumé owner's name.
// Diacritics are stripped and anything that is not a letter or digit becomes
// an underscore; an empty slug falls back to "resume".
func ExportFileName(name string, at time.Time) string {
	slug := slugify(name)
	if slug == "" {
		slug = "resume"
	}
	return slug + "_" + strconv.FormatInt(at.UnixMilli(), 10) + ".json"
}

// Import decodes a JSON document from r and applies each known top-level key
// to doc. The document must be a JSON object.
func Import(ctx context.Context, r io.Reader, doc *Document) (ImportResult, error) {
	var sections map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&sections); err != nil {
		return ImportResult{}, &FieldError{Field: "document", Reason: err.Error()}
	}
	if sections == nil {
		return ImportResult{}, &FieldError{Field: "document", Reason: "expected a JSON object"}
	}
	applied, skipped, err := doc.Apply(ctx, sections)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Applied: applied, Skipped: skipped}, nil
}

func slugify(s string) string {
	// Transformer chains carry state, so build one per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

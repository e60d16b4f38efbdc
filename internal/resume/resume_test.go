package resume_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

type brokenStore struct{ *store.Memory }

func (brokenStore) Set(context.Context, string, []byte, store.Index) error {
	return errors.New("store offline")
}

func sampleSnapshot() *resume.Snapshot {
	return &resume.Snapshot{
		Basics: resume.Basics{Name: "Ada Lovelace", Summary: "Analyst", Profiles: []resume.Profile{{Network: "GitHub", Username: "ada"}}},
		Skills: resume.Skills{"languages": {"Go", "SQL"}},
		Work: []resume.Work{{
			Name: "Engines Ltd", Position: "Programmer", Summary: "Built X",
			Highlights: []string{"Wrote the first program"},
		}},
		Projects: []resume.Project{{Name: "Notes", Keywords: []string{"math"}}},
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := sampleSnapshot()
	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Work[0].Highlights[0] = "changed"
	cp.Skills["languages"][0] = "Rust"
	cp.Basics.Profiles[0].Username = "someone"
	cp.Projects[0].Keywords[0] = "poetry"

	assert.Equal(t, "Wrote the first program", orig.Work[0].Highlights[0])
	assert.Equal(t, "Go", orig.Skills["languages"][0])
	assert.Equal(t, "ada", orig.Basics.Profiles[0].Username)
	assert.Equal(t, "math", orig.Projects[0].Keywords[0])

	var nilSnap *resume.Snapshot
	assert.Nil(t, nilSnap.Clone())
}

func TestDocument_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	doc := resume.NewDocument(mem, nil)
	require.NoError(t, doc.Replace(ctx, sampleSnapshot()))

	reloaded := resume.NewDocument(mem, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "Ada Lovelace", reloaded.Snapshot().Basics.Name)

	// Snapshot returns a copy.
	s := reloaded.Snapshot()
	s.Basics.Name = "Someone Else"
	assert.Equal(t, "Ada Lovelace", reloaded.Snapshot().Basics.Name)
}

func TestDocument_LoadEmptyStore(t *testing.T) {
	doc := resume.NewDocument(store.NewMemory(), nil)
	require.NoError(t, doc.Load(context.Background()))
	assert.Equal(t, &resume.Snapshot{}, doc.Snapshot())
}

func TestDocument_Reset(t *testing.T) {
	ctx := context.Background()
	doc := resume.NewDocument(nil, nil)
	require.NoError(t, doc.Replace(ctx, sampleSnapshot()))

	require.NoError(t, doc.Reset(ctx, resume.KeyWork, json.RawMessage(`[{"name":"New Co","position":"Lead"}]`)))
	snap := doc.Snapshot()
	require.Len(t, snap.Work, 1)
	assert.Equal(t, "New Co", snap.Work[0].Name)
	assert.Empty(t, snap.Work[0].Highlights, "old entry fields must not leak into the reset section")
	assert.Equal(t, "Ada Lovelace", snap.Basics.Name, "other sections untouched")

	var vErr *resume.FieldError
	require.ErrorAs(t, doc.Reset(ctx, "hobbies", json.RawMessage(`[]`)), &vErr)
	require.ErrorAs(t, doc.Reset(ctx, resume.KeySkills, json.RawMessage(`[1,2]`)), &vErr)
	assert.Equal(t, resume.KeySkills, vErr.Field)
}

func TestDocument_FailedPersistKeepsState(t *testing.T) {
	ctx := context.Background()
	doc := resume.NewDocument(brokenStore{store.NewMemory()}, nil)
	require.Error(t, doc.Replace(ctx, sampleSnapshot()))
	assert.Empty(t, doc.Snapshot().Basics.Name)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, resume.Export(&buf, sampleSnapshot()))

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &keys))
	for _, k := range resume.Keys {
		assert.Contains(t, keys, k)
	}

	doc := resume.NewDocument(nil, nil)
	res, err := resume.Import(ctx, &buf, doc)
	require.NoError(t, err)
	assert.Equal(t, resume.Keys, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, sampleSnapshot().Work, doc.Snapshot().Work)
}

func TestImport_SkipsUnknownKeys(t *testing.T) {
	doc := resume.NewDocument(nil, nil)
	res, err := resume.Import(context.Background(),
		strings.NewReader(`{"basics":{"name":"Grace"},"theme":"dark","meta":{}}`), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"basics"}, res.Applied)
	assert.Equal(t, []string{"meta", "theme"}, res.Skipped)
	assert.Equal(t, "Grace", doc.Snapshot().Basics.Name)
}

func TestImport_RejectsMalformed(t *testing.T) {
	doc := resume.NewDocument(nil, nil)
	var vErr *resume.FieldError

	_, err := resume.Import(context.Background(), strings.NewReader(`not json`), doc)
	require.ErrorAs(t, err, &vErr)

	_, err = resume.Import(context.Background(), strings.NewReader(`null`), doc)
	require.ErrorAs(t, err, &vErr)

	// One bad section aborts the whole import.
	_, err = resume.Import(context.Background(),
		strings.NewReader(`{"basics":{"name":"Grace"},"work":"oops"}`), doc)
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, doc.Snapshot().Basics.Name)
}

func TestExportFileName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "ada_lovelace_1700000000123.json"},
		{"José  Núñez-García", "jose_nunez_garcia_1700000000123.json"},
		{"  ", "resume_1700000000123.json"},
		{"", "resume_1700000000123.json"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, resume.ExportFileName(tt.name, at))
		})
	}
}
